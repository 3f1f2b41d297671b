package orchestrator

import (
	"github.com/nerrad567/gray-logic-conductor/internal/environment"
	"github.com/nerrad567/gray-logic-conductor/internal/goal"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Context adjustment constants.
const (
	// ColdMorningBoost is added to the wake_up thermostat target when it is cold out.
	ColdMorningBoost = 2
	// ColdMorningThreshold is the outdoor temperature below which the boost applies.
	ColdMorningThreshold = 5.0
	// QuietHoursMaxBrightness caps ambiance brightness during quiet hours.
	QuietHoursMaxBrightness = 30

	closeWindowsSuffix = " and close windows"
)

// adjustment is a pure, order-preserving transform over a step list. It may
// modify the steps it is given; applyAdjustments hands it copies.
type adjustment func(steps []plan.Step, gt goal.Type, snap environment.Snapshot)

// adjustments run in this order, once each.
var adjustments = []adjustment{
	closeWindowsInRain,
	boostColdMorning,
	capQuietHours,
}

// applyAdjustments returns adjusted copies of steps. The input is untouched.
func applyAdjustments(steps []plan.Step, gt goal.Type, snap environment.Snapshot) []plan.Step {
	out := make([]plan.Step, len(steps))
	for i := range steps {
		out[i] = steps[i].Clone()
		if out[i].Params == nil {
			out[i].Params = map[string]any{}
		}
	}
	for _, adjust := range adjustments {
		adjust(out, gt, snap)
	}
	return out
}

func closeWindowsInRain(steps []plan.Step, gt goal.Type, snap environment.Snapshot) {
	if !snap.IsRaining || (gt != goal.TypeGoodnight && gt != goal.TypeLeavingHome) {
		return
	}
	if i := firstOf(steps, plan.Ambiance); i >= 0 {
		steps[i].Params["close_windows"] = true
		steps[i].Description += closeWindowsSuffix
	}
}

func boostColdMorning(steps []plan.Step, gt goal.Type, snap environment.Snapshot) {
	if gt != goal.TypeWakeUp || snap.OutdoorTemp >= ColdMorningThreshold {
		return
	}
	i := firstOf(steps, plan.Energy)
	if i < 0 {
		return
	}
	switch v := steps[i].Params["target"].(type) {
	case int:
		steps[i].Params["target"] = v + ColdMorningBoost
	case float64:
		steps[i].Params["target"] = v + ColdMorningBoost
	}
}

func capQuietHours(steps []plan.Step, _ goal.Type, snap environment.Snapshot) {
	if !snap.IsQuietHours {
		return
	}
	for i := range steps {
		if steps[i].Specialist != plan.Ambiance {
			continue
		}
		switch v := steps[i].Params["brightness"].(type) {
		case int:
			if v > QuietHoursMaxBrightness {
				steps[i].Params["brightness"] = QuietHoursMaxBrightness
			}
		case float64:
			if v > QuietHoursMaxBrightness {
				steps[i].Params["brightness"] = float64(QuietHoursMaxBrightness)
			}
		}
	}
}

func firstOf(steps []plan.Step, k plan.SpecialistKind) int {
	for i := range steps {
		if steps[i].Specialist == k {
			return i
		}
	}
	return -1
}
