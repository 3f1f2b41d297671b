package environment

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/mqtt"
)

// Weather is the latest outdoor reading.
type Weather struct {
	IsRaining   bool      `json:"is_raining"`
	OutdoorTemp float64   `json:"outdoor_temp"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// weatherMessage is the sensor payload. Absent fields keep their cached value.
type weatherMessage struct {
	IsRaining   *bool    `json:"is_raining"`
	OutdoorTemp *float64 `json:"outdoor_temp"`
}

// Subscriber is the subset of the MQTT client the cache needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// WeatherCache holds the most recent weather reading. It starts from
// configured defaults and is updated by sensor messages.
type WeatherCache struct {
	mu      sync.RWMutex
	current Weather
	now     func() time.Time
}

// NewWeatherCache creates a cache seeded with defaults.
func NewWeatherCache(defaults Weather) *WeatherCache {
	return &WeatherCache{current: defaults, now: time.Now}
}

// Get returns the current reading.
func (w *WeatherCache) Get() Weather {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Set replaces the current reading.
func (w *WeatherCache) Set(reading Weather) {
	if reading.UpdatedAt.IsZero() {
		reading.UpdatedAt = w.now().UTC()
	}
	w.mu.Lock()
	w.current = reading
	w.mu.Unlock()
}

// HandleMessage decodes a sensor payload such as
// {"is_raining":true,"outdoor_temp":3.5} and merges it into the cache.
func (w *WeatherCache) HandleMessage(_ string, payload []byte) error {
	var msg weatherMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWeather, err)
	}
	if msg.IsRaining == nil && msg.OutdoorTemp == nil {
		return fmt.Errorf("%w: no known fields", ErrInvalidWeather)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if msg.IsRaining != nil {
		w.current.IsRaining = *msg.IsRaining
	}
	if msg.OutdoorTemp != nil {
		w.current.OutdoorTemp = *msg.OutdoorTemp
	}
	w.current.UpdatedAt = w.now().UTC()
	return nil
}

// Subscribe starts feeding the cache from topic.
func (w *WeatherCache) Subscribe(sub Subscriber, topic string) error {
	if topic == "" {
		topic = mqtt.Topics{}.Weather()
	}
	if err := sub.Subscribe(topic, 1, w.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to weather: %w", err)
	}
	return nil
}
