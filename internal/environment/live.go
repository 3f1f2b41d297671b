package environment

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/config"
)

const minutesPerDay = 24 * 60

// LiveProvider builds snapshots from the clock, the quiet-hours window,
// a WeatherCache and the configured occupancy.
type LiveProvider struct {
	weather    *WeatherCache
	loc        *time.Location
	quietStart int // minutes past midnight
	quietEnd   int
	occupancy  string
	now        func() time.Time
}

// NewLiveProvider creates a provider. An empty timezone uses the local zone.
func NewLiveProvider(cfg config.EnvironmentConfig, timezone string, weather *WeatherCache) (*LiveProvider, error) {
	start, err := config.ParseClock(cfg.QuietHoursStart)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %w", ErrInvalidQuietHours, err)
	}
	end, err := config.ParseClock(cfg.QuietHoursEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %w", ErrInvalidQuietHours, err)
	}

	loc := time.Local
	if timezone != "" {
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
		}
	}

	if weather == nil {
		weather = NewWeatherCache(Weather{
			IsRaining:   cfg.DefaultRaining,
			OutdoorTemp: cfg.DefaultOutdoorTemp,
		})
	}

	return &LiveProvider{
		weather:    weather,
		loc:        loc,
		quietStart: start,
		quietEnd:   end,
		occupancy:  cfg.Occupancy,
		now:        time.Now,
	}, nil
}

// SetClock replaces the time source.
func (p *LiveProvider) SetClock(now func() time.Time) {
	p.now = now
}

// Weather returns the cache backing this provider.
func (p *LiveProvider) Weather() *WeatherCache {
	return p.weather
}

// GetContext implements Provider.
func (p *LiveProvider) GetContext(_ context.Context, _ string) (Snapshot, error) {
	now := p.now().In(p.loc)
	w := p.weather.Get()

	return Snapshot{
		TimeOfDay:    TimeOfDayAt(now),
		IsRaining:    w.IsRaining,
		OutdoorTemp:  w.OutdoorTemp,
		IsQuietHours: inWindow(now.Hour()*60+now.Minute(), p.quietStart, p.quietEnd),
		Occupancy:    p.occupancy,
		TakenAt:      now.UTC(),
	}, nil
}

// inWindow reports whether minute m falls in [start, end), wrapping midnight
// when start > end. An empty window (start == end) matches nothing.
func inWindow(m, start, end int) bool {
	m %= minutesPerDay
	switch {
	case start == end:
		return false
	case start < end:
		return m >= start && m < end
	default:
		return m >= start || m < end
	}
}
