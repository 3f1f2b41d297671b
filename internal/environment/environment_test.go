package environment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/mqtt"
)

func testEnvConfig() config.EnvironmentConfig {
	return config.EnvironmentConfig{
		QuietHoursStart:    "22:00",
		QuietHoursEnd:      "07:00",
		DefaultOutdoorTemp: 15,
		Occupancy:          "home",
	}
}

func fixedClock(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 1, hour, minute, 0, 0, time.UTC)
	}
}

func TestTimeOfDayAt(t *testing.T) {
	tests := []struct {
		hour int
		want TimeOfDay
	}{
		{0, Night}, {4, Night}, {5, Morning}, {11, Morning},
		{12, Afternoon}, {16, Afternoon}, {17, Evening}, {21, Evening}, {22, Night},
	}
	for _, tt := range tests {
		got := TimeOfDayAt(time.Date(2026, 1, 1, tt.hour, 30, 0, 0, time.UTC))
		if got != tt.want {
			t.Errorf("TimeOfDayAt(%02d:30) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestInWindow(t *testing.T) {
	tests := []struct {
		name       string
		m          int
		start, end int
		want       bool
	}{
		{"wrapping inside late", 23 * 60, 22 * 60, 7 * 60, true},
		{"wrapping inside early", 3 * 60, 22 * 60, 7 * 60, true},
		{"wrapping at end", 7 * 60, 22 * 60, 7 * 60, false},
		{"wrapping outside", 12 * 60, 22 * 60, 7 * 60, false},
		{"plain inside", 13 * 60, 12 * 60, 14 * 60, true},
		{"plain at start", 12 * 60, 12 * 60, 14 * 60, true},
		{"plain outside", 15 * 60, 12 * 60, 14 * 60, false},
		{"empty window", 12 * 60, 12 * 60, 12 * 60, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inWindow(tt.m, tt.start, tt.end); got != tt.want {
				t.Errorf("inWindow(%d, %d, %d) = %v, want %v", tt.m, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestLiveProvider_GetContext(t *testing.T) {
	p, err := NewLiveProvider(testEnvConfig(), "UTC", nil)
	if err != nil {
		t.Fatalf("NewLiveProvider() error = %v", err)
	}

	t.Run("daytime defaults", func(t *testing.T) {
		p.SetClock(fixedClock(14, 0))
		snap, err := p.GetContext(context.Background(), "alice")
		if err != nil {
			t.Fatalf("GetContext() error = %v", err)
		}
		if snap.IsQuietHours {
			t.Error("IsQuietHours = true at 14:00")
		}
		if snap.TimeOfDay != Afternoon {
			t.Errorf("TimeOfDay = %q, want afternoon", snap.TimeOfDay)
		}
		if snap.OutdoorTemp != 15 || snap.IsRaining {
			t.Errorf("weather = (%v, %v), want configured defaults", snap.OutdoorTemp, snap.IsRaining)
		}
		if snap.Occupancy != "home" {
			t.Errorf("Occupancy = %q, want home", snap.Occupancy)
		}
	})

	t.Run("quiet hours after weather update", func(t *testing.T) {
		p.SetClock(fixedClock(23, 15))
		if err := p.Weather().HandleMessage("conductor/sensor/weather", []byte(`{"is_raining":true,"outdoor_temp":3.5}`)); err != nil {
			t.Fatalf("HandleMessage() error = %v", err)
		}
		snap, _ := p.GetContext(context.Background(), "alice")
		if !snap.IsQuietHours || snap.TimeOfDay != Night {
			t.Errorf("snapshot = %+v, want quiet night", snap)
		}
		if !snap.IsRaining || snap.OutdoorTemp != 3.5 {
			t.Errorf("weather = (%v, %v), want (true, 3.5)", snap.IsRaining, snap.OutdoorTemp)
		}
	})
}

func TestNewLiveProvider_Errors(t *testing.T) {
	cfg := testEnvConfig()
	cfg.QuietHoursStart = "10pm"
	if _, err := NewLiveProvider(cfg, "", nil); !errors.Is(err, ErrInvalidQuietHours) {
		t.Errorf("bad start error = %v, want ErrInvalidQuietHours", err)
	}

	if _, err := NewLiveProvider(testEnvConfig(), "Not/AZone", nil); err == nil {
		t.Error("bad timezone error = nil")
	}
}

func TestWeatherCache_HandleMessage(t *testing.T) {
	w := NewWeatherCache(Weather{OutdoorTemp: 10})

	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		wantRain  bool
		wantTempC float64
	}{
		{"partial keeps temperature", `{"is_raining":true}`, false, true, 10},
		{"temperature only", `{"outdoor_temp":-2}`, false, true, -2},
		{"malformed", `{"is_raining":`, true, true, -2},
		{"unknown fields only", `{"humidity":80}`, true, true, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.HandleMessage("t", []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidWeather) {
				t.Errorf("error = %v, want ErrInvalidWeather", err)
			}
			got := w.Get()
			if got.IsRaining != tt.wantRain || got.OutdoorTemp != tt.wantTempC {
				t.Errorf("Get() = %+v, want rain=%v temp=%v", got, tt.wantRain, tt.wantTempC)
			}
		})
	}
}

type mockSubscriber struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
	err      error
}

func (m *mockSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.handlers == nil {
		m.handlers = make(map[string]mqtt.MessageHandler)
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockSubscriber) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	return nil
}

func TestWeatherCache_Subscribe(t *testing.T) {
	w := NewWeatherCache(Weather{})
	sub := &mockSubscriber{}

	if err := w.Subscribe(sub, ""); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	handler, ok := sub.handlers["conductor/sensor/weather"]
	if !ok {
		t.Fatalf("no handler on default weather topic; got %v", sub.handlers)
	}
	if err := handler("conductor/sensor/weather", []byte(`{"outdoor_temp":21}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := w.Get().OutdoorTemp; got != 21 {
		t.Errorf("OutdoorTemp = %v, want 21", got)
	}

	failing := &mockSubscriber{err: mqtt.ErrNotConnected}
	if err := w.Subscribe(failing, "x"); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestStaticProvider(t *testing.T) {
	want := Snapshot{TimeOfDay: Evening, IsQuietHours: true, Occupancy: "away"}
	got, err := StaticProvider{Snapshot: want}.GetContext(context.Background(), "u")
	if err != nil || got != want {
		t.Errorf("GetContext() = (%+v, %v), want %+v", got, err, want)
	}
}
