package specialist

// Step actions understood by the built-in specialists. Unknown actions pass
// their non-directive params through as semantic commands.
const (
	ActionDim           = "dim"
	ActionBrighten      = "brighten"
	ActionSetBrightness = "set_brightness"
	ActionLightsOn      = "lights_on"
	ActionLightsOff     = "lights_off"
	ActionStatusCheck   = "status_check"

	ActionLock       = "lock"
	ActionVerifyLock = "verify_lock"
	ActionUnlock     = "unlock"

	ActionSetTemperature = "set_temperature"
	ActionThermostatOff  = "thermostat_off"

	ActionPlaySound = "play_sound"
	ActionStopSound = "stop_sound"
)

// directives are step params that steer a specialist rather than being sent
// to a device.
var directives = map[string]bool{
	ParamCloseWindows: true,
	ParamNight:        true,
}

// passThrough returns params minus directives.
func passThrough(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if !directives[k] {
			out[k] = v
		}
	}
	return out
}

// pick copies the listed keys that are present in params.
func pick(params map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := params[k]; ok {
			out[k] = v
		}
	}
	return out
}
