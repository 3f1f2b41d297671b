package specialist

import (
	"context"

	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Energy controls thermostats.
type Energy struct {
	executor
}

// NewEnergy creates the energy specialist.
func NewEnergy(devices Devices, opts Options) *Energy {
	return &Energy{executor: newExecutor(plan.Energy, devices, opts)}
}

// Kind implements Specialist.
func (e *Energy) Kind() plan.SpecialistKind { return plan.Energy }

// Enrich clamps the thermostat target to 50..85.
func (e *Energy) Enrich(step plan.Step) plan.EnrichedStep {
	out := enrichBase(step,
		plan.RetryPolicy{MaxAttempts: 2, BackoffMS: 1000},
		plan.Validation{PostCheck: true},
	)
	clampParam(out.Params, ParamTarget, MinTarget, MaxTarget)
	return out
}

// Execute implements Specialist.
func (e *Energy) Execute(ctx context.Context, step plan.EnrichedStep) error {
	devs, err := e.resolve(ctx, step)
	if err != nil {
		return err
	}
	return e.run(ctx, step, targetsFor(devs, energyCommands(step.Step)))
}

func energyCommands(step plan.Step) map[string]any {
	switch step.Action {
	case ActionSetTemperature:
		return pick(step.Params, ParamTarget, "mode")
	case ActionThermostatOff:
		return map[string]any{ParamPower: false}
	default:
		return passThrough(step.Params)
	}
}
