package goal

import "errors"

var (
	// ErrInvalidGoal is returned for empty, whitespace-only or oversized goal text.
	ErrInvalidGoal = errors.New("goal: invalid text")
)
