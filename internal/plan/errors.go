package plan

import "errors"

var (
	// ErrPlanNotFound is returned when a plan ID is unknown, expired or already taken.
	ErrPlanNotFound = errors.New("plan: not found")

	// ErrInvalidPlan is returned when a plan violates its structural invariants.
	ErrInvalidPlan = errors.New("plan: invalid")

	// ErrUnknownSpecialist is returned for a specialist name outside the known set.
	ErrUnknownSpecialist = errors.New("plan: unknown specialist")
)
