package specialist

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-conductor/internal/device"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Ambiance controls lights and, when asked to, windows.
type Ambiance struct {
	executor
}

// NewAmbiance creates the ambiance specialist.
func NewAmbiance(devices Devices, opts Options) *Ambiance {
	return &Ambiance{executor: newExecutor(plan.Ambiance, devices, opts)}
}

// Kind implements Specialist.
func (a *Ambiance) Kind() plan.SpecialistKind { return plan.Ambiance }

// Enrich clamps brightness (to 30 when night=true) and colour temperature,
// post-checks any step that sets values, and falls back to a
// brightness-only command when the step also sets colour.
func (a *Ambiance) Enrich(step plan.Step) plan.EnrichedStep {
	e := enrichBase(step,
		plan.RetryPolicy{MaxAttempts: 3, BackoffMS: 500},
		plan.Validation{PostCheck: step.Action != ActionStatusCheck},
	)

	maxBrightness := float64(MaxBrightness)
	if boolParam(e.Params, ParamNight) {
		maxBrightness = NightMaxBrightness
	}
	clampParam(e.Params, ParamBrightness, MinBrightness, maxBrightness)
	clampParam(e.Params, ParamColorTemp, MinColorTemp, MaxColorTemp)

	_, hasColor := e.Params[ParamColor]
	_, hasTemp := e.Params[ParamColorTemp]
	if hasColor || hasTemp {
		e.Fallback = &plan.Fallback{
			Action: ActionSetBrightness,
			Params: pick(e.Params, ParamBrightness),
		}
	}
	return e
}

// Execute implements Specialist.
func (a *Ambiance) Execute(ctx context.Context, step plan.EnrichedStep) error {
	devs, err := a.resolve(ctx, step)
	if err != nil {
		return err
	}
	targets := targetsFor(devs, ambianceCommands(step.Step))

	if boolParam(step.Params, ParamCloseWindows) {
		windows, err := a.devices.ListByType(ctx, device.DeviceTypeWindow)
		if err != nil {
			return fmt.Errorf("%w: listing windows: %w", ErrCommandFailed, err)
		}
		if len(windows) == 0 {
			a.logger.Warn("close_windows requested but no window devices", "order", step.Order)
		}
		for i := range windows {
			targets = append(targets, target{dev: &windows[i], semantic: map[string]any{ParamClosed: true}})
		}
	}

	return a.run(ctx, step, targets)
}

func ambianceCommands(step plan.Step) map[string]any {
	switch step.Action {
	case ActionStatusCheck:
		return nil
	case ActionLightsOff:
		return map[string]any{ParamPower: false}
	case ActionDim, ActionBrighten, ActionSetBrightness, ActionLightsOn:
		cmds := pick(step.Params, ParamBrightness, ParamColorTemp, ParamColor)
		cmds[ParamPower] = true
		return cmds
	default:
		return passThrough(step.Params)
	}
}
