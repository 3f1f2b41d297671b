package specialist

import (
	"context"

	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Security controls door locks. Locks are pre-checked so a lock that is
// already in the wanted position is not driven again.
type Security struct {
	executor
}

// NewSecurity creates the security specialist.
func NewSecurity(devices Devices, opts Options) *Security {
	return &Security{executor: newExecutor(plan.Security, devices, opts)}
}

// Kind implements Specialist.
func (s *Security) Kind() plan.SpecialistKind { return plan.Security }

// Enrich implements Specialist.
func (s *Security) Enrich(step plan.Step) plan.EnrichedStep {
	return enrichBase(step,
		plan.RetryPolicy{MaxAttempts: 3, BackoffMS: 1000},
		plan.Validation{PreCheck: true, PostCheck: true},
	)
}

// Execute implements Specialist.
func (s *Security) Execute(ctx context.Context, step plan.EnrichedStep) error {
	devs, err := s.resolve(ctx, step)
	if err != nil {
		return err
	}
	return s.run(ctx, step, targetsFor(devs, securityCommands(step.Step)))
}

func securityCommands(step plan.Step) map[string]any {
	switch step.Action {
	case ActionLock, ActionVerifyLock:
		return map[string]any{ParamLocked: true}
	case ActionUnlock:
		return map[string]any{ParamLocked: false}
	default:
		return passThrough(step.Params)
	}
}
