package execution

import (
	"errors"

	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Domain-specific errors for plan execution.
var (
	// ErrPlanNotFound is returned when the plan does not exist, has expired,
	// or has already been taken by another execution.
	ErrPlanNotFound = plan.ErrPlanNotFound

	// ErrExecutionNotFound is returned when an execution log does not exist.
	ErrExecutionNotFound = errors.New("execution: log not found")

	// ErrInvalidTransition is returned when a step leaves a terminal state or
	// skips a state.
	ErrInvalidTransition = errors.New("execution: invalid step transition")
)
