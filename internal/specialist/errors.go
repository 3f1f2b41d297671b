package specialist

import (
	"errors"

	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

var (
	// ErrDeviceNotFound is returned when none of a step's device hints resolve.
	// Retrying cannot help.
	ErrDeviceNotFound = errors.New("specialist: device not found")

	// ErrCommandFailed is returned when a device rejects or loses a command.
	ErrCommandFailed = errors.New("specialist: command failed")

	// ErrValidationMismatch is returned when post-check state differs from the target.
	ErrValidationMismatch = errors.New("specialist: validation mismatch")
)

// IsRetryable reports whether another attempt at the step could succeed.
func IsRetryable(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrDeviceNotFound) &&
		!errors.Is(err, plan.ErrUnknownSpecialist)
}
