package specialist

import (
	"context"

	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Wellness controls speakers for sleep and wake-up sounds. Playback is not
// verified.
type Wellness struct {
	executor
}

// NewWellness creates the wellness specialist.
func NewWellness(devices Devices, opts Options) *Wellness {
	return &Wellness{executor: newExecutor(plan.Wellness, devices, opts)}
}

// Kind implements Specialist.
func (w *Wellness) Kind() plan.SpecialistKind { return plan.Wellness }

// Enrich clamps volume to 0..100.
func (w *Wellness) Enrich(step plan.Step) plan.EnrichedStep {
	out := enrichBase(step,
		plan.RetryPolicy{MaxAttempts: 2, BackoffMS: 250},
		plan.Validation{},
	)
	clampParam(out.Params, ParamVolume, MinVolume, MaxVolume)
	return out
}

// Execute implements Specialist.
func (w *Wellness) Execute(ctx context.Context, step plan.EnrichedStep) error {
	devs, err := w.resolve(ctx, step)
	if err != nil {
		return err
	}
	return w.run(ctx, step, targetsFor(devs, wellnessCommands(step.Step)))
}

func wellnessCommands(step plan.Step) map[string]any {
	switch step.Action {
	case ActionPlaySound:
		cmds := pick(step.Params, ParamSound, ParamVolume)
		cmds[ParamPower] = true
		return cmds
	case ActionStopSound:
		return map[string]any{ParamPower: false}
	default:
		return passThrough(step.Params)
	}
}
