package orchestrator

import (
	"errors"

	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

var (
	// ErrUnknownSpecialist is returned when a template step names a
	// specialist that is not registered.
	ErrUnknownSpecialist = plan.ErrUnknownSpecialist

	// ErrInvalidTemplate is returned when a template file cannot be used.
	ErrInvalidTemplate = errors.New("orchestrator: invalid template")
)
