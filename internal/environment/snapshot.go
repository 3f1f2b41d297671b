package environment

import (
	"context"
	"time"
)

// TimeOfDay buckets the local hour.
type TimeOfDay string

// Time-of-day buckets.
const (
	Morning   TimeOfDay = "morning"   // 05:00-11:59
	Afternoon TimeOfDay = "afternoon" // 12:00-16:59
	Evening   TimeOfDay = "evening"   // 17:00-21:59
	Night     TimeOfDay = "night"     // 22:00-04:59
)

// TimeOfDayAt returns the bucket for t in t's location.
func TimeOfDayAt(t time.Time) TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	case h >= 17 && h < 22:
		return Evening
	default:
		return Night
	}
}

// Snapshot is a point-in-time view of the home's environment.
type Snapshot struct {
	TimeOfDay    TimeOfDay `json:"time_of_day"`
	IsRaining    bool      `json:"is_raining"`
	OutdoorTemp  float64   `json:"outdoor_temp"`
	IsQuietHours bool      `json:"is_quiet_hours"`
	Occupancy    string    `json:"occupancy"`
	TakenAt      time.Time `json:"taken_at"`
}

// Provider returns the current snapshot for a user.
type Provider interface {
	GetContext(ctx context.Context, userID string) (Snapshot, error)
}

// StaticProvider always returns the same snapshot.
type StaticProvider struct {
	Snapshot Snapshot
}

// GetContext implements Provider.
func (p StaticProvider) GetContext(_ context.Context, _ string) (Snapshot, error) {
	return p.Snapshot, nil
}
