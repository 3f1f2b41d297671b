package environment

import "errors"

var (
	// ErrInvalidWeather is returned when a weather message cannot be decoded.
	ErrInvalidWeather = errors.New("environment: invalid weather reading")

	// ErrInvalidQuietHours is returned when the quiet window is not HH:MM.
	ErrInvalidQuietHours = errors.New("environment: invalid quiet hours")
)
