package specialist

import (
	"math"
)

// Semantic parameter names understood by the specialists.
const (
	ParamPower        = "power"
	ParamBrightness   = "brightness"
	ParamColorTemp    = "color_temp"
	ParamColor        = "color"
	ParamLocked       = "locked"
	ParamTarget       = "target"
	ParamVolume       = "volume"
	ParamSound        = "sound"
	ParamClosed       = "closed"
	ParamCloseWindows = "close_windows"
	ParamNight        = "night"
)

// Clamp ranges.
const (
	MinBrightness      = 0
	MaxBrightness      = 100
	NightMaxBrightness = 30
	MinColorTemp       = 2000
	MaxColorTemp       = 6500
	MinTarget          = 50
	MaxTarget          = 85
	MinVolume          = 0
	MaxVolume          = 100
)

// toFloat returns v as float64 if it is numeric.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// clampParam clamps params[key] into [lo, hi] in place, keeping integers as
// int. Non-numeric values are left alone.
func clampParam(params map[string]any, key string, lo, hi float64) {
	v, ok := params[key]
	if !ok {
		return
	}
	f, ok := toFloat(v)
	if !ok {
		return
	}
	c := math.Min(math.Max(f, lo), hi)
	if c == f {
		return
	}
	switch v.(type) {
	case float64, float32:
		params[key] = c
	default:
		params[key] = int(c)
	}
}

func boolParam(params map[string]any, key string) bool {
	b, ok := params[key].(bool)
	return ok && b
}
