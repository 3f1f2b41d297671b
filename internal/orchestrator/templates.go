package orchestrator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-conductor/internal/goal"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Device names used by the built-in templates.
const (
	livingRoomLight   = "Living Room Light"
	kitchenLight      = "Kitchen Light"
	bedroomLight      = "Bedroom Light"
	hallwayLight      = "Hallway Light"
	frontDoorLock     = "Front Door Lock"
	backDoorLock      = "Back Door Lock"
	bedroomThermostat = "Bedroom Thermostat"
	bedroomSpeaker    = "Bedroom Speaker"
	livingRoomSpeaker = "Living Room Speaker"
)

// Template is the fixed step list for one goal type.
type Template struct {
	GoalType             goal.Type   `yaml:"goal_type"`
	RequiresConfirmation bool        `yaml:"requires_confirmation"`
	Steps                []plan.Step `yaml:"steps"`
}

// Templates maps goal types to their templates.
type Templates map[goal.Type]Template

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() Templates {
	step := func(order int, k plan.SpecialistKind, action, desc string, devices []string, params map[string]any) plan.Step {
		return plan.Step{Order: order, Specialist: k, Action: action, Description: desc, DeviceHints: devices, Params: params}
	}
	allLights := []string{livingRoomLight, kitchenLight, bedroomLight, hallwayLight}
	bothDoors := []string{frontDoorLock, backDoorLock}

	return Templates{
		goal.TypeMovieTime: {
			GoalType: goal.TypeMovieTime,
			Steps: []plan.Step{
				step(1, plan.Ambiance, "dim", "Dim the living room lights to a warm glow",
					[]string{livingRoomLight}, map[string]any{"brightness": 30, "color_temp": 2700}),
				step(2, plan.Security, "verify_lock", "Make sure the front door is locked",
					[]string{frontDoorLock}, map[string]any{"locked": true}),
				step(3, plan.Energy, "set_temperature", "Set a comfortable temperature",
					[]string{bedroomThermostat}, map[string]any{"target": 70}),
			},
		},
		goal.TypeGoodnight: {
			GoalType: goal.TypeGoodnight,
			Steps: []plan.Step{
				step(1, plan.Ambiance, "lights_off", "Turn off the living room and kitchen lights",
					[]string{livingRoomLight, kitchenLight}, map[string]any{}),
				step(2, plan.Security, "lock", "Lock the front and back doors",
					bothDoors, map[string]any{"locked": true}),
				step(3, plan.Energy, "set_temperature", "Lower the temperature for sleep",
					[]string{bedroomThermostat}, map[string]any{"target": 66}),
				step(4, plan.Wellness, "play_sound", "Play white noise in the bedroom",
					[]string{bedroomSpeaker}, map[string]any{"sound": "white_noise", "volume": 20}),
			},
		},
		goal.TypeLeavingHome: {
			GoalType:             goal.TypeLeavingHome,
			RequiresConfirmation: true,
			Steps: []plan.Step{
				step(1, plan.Ambiance, "lights_off", "Turn off all lights",
					allLights, map[string]any{}),
				step(2, plan.Security, "lock", "Lock the front and back doors",
					bothDoors, map[string]any{"locked": true}),
				step(3, plan.Energy, "set_temperature", "Set the thermostat to eco",
					[]string{bedroomThermostat}, map[string]any{"target": 62}),
			},
		},
		goal.TypeWakeUp: {
			GoalType: goal.TypeWakeUp,
			Steps: []plan.Step{
				step(1, plan.Ambiance, "brighten", "Bring up the bedroom lights",
					[]string{bedroomLight}, map[string]any{"brightness": 80, "color_temp": 4000}),
				step(2, plan.Energy, "set_temperature", "Warm the house for the morning",
					[]string{bedroomThermostat}, map[string]any{"target": 70}),
				step(3, plan.Wellness, "play_sound", "Play a morning chime",
					[]string{bedroomSpeaker}, map[string]any{"sound": "morning_chime", "volume": 35}),
			},
		},
		goal.TypeArrivingHome: {
			GoalType:             goal.TypeArrivingHome,
			RequiresConfirmation: true,
			Steps: []plan.Step{
				step(1, plan.Security, "unlock", "Unlock the front door",
					[]string{frontDoorLock}, map[string]any{"locked": false}),
				step(2, plan.Ambiance, "set_brightness", "Light the hallway",
					[]string{hallwayLight}, map[string]any{"brightness": 70}),
				step(3, plan.Energy, "set_temperature", "Set a comfortable temperature",
					[]string{bedroomThermostat}, map[string]any{"target": 70}),
			},
		},
		goal.TypeRelax: {
			GoalType: goal.TypeRelax,
			Steps: []plan.Step{
				step(1, plan.Ambiance, "dim", "Soften the living room lights",
					[]string{livingRoomLight}, map[string]any{"brightness": 45, "color_temp": 2400}),
				step(2, plan.Wellness, "play_sound", "Play ambient music",
					[]string{livingRoomSpeaker}, map[string]any{"sound": "ambient", "volume": 25}),
			},
		},
	}
}

// templateFile is the YAML shape of a template override file.
//
//	templates:
//	  - goal_type: movie_time
//	    requires_confirmation: false
//	    steps:
//	      - order: 1
//	        specialist: ambiance
//	        action: dim
//	        devices: [Living Room Light]
//	        params: {brightness: 20}
type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates returns the built-in templates with those in path layered
// on top. Templates in the file replace built-ins of the same goal type.
func LoadTemplates(path string) (Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}
	overrides, err := ParseTemplates(data)
	if err != nil {
		return nil, err
	}
	merged := DefaultTemplates()
	for gt, t := range overrides {
		merged[gt] = t
	}
	return merged, nil
}

// ParseTemplates decodes a template file. Specialist names are not checked
// here; an unknown one fails plan creation for that goal type.
func ParseTemplates(data []byte) (Templates, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	out := make(Templates, len(file.Templates))
	for i, t := range file.Templates {
		switch {
		case !t.GoalType.IsValid():
			return nil, fmt.Errorf("%w: template %d: unknown goal type %q", ErrInvalidTemplate, i, t.GoalType)
		case t.GoalType == goal.TypeCustom:
			return nil, fmt.Errorf("%w: custom goals are synthesised, not templated", ErrInvalidTemplate)
		case len(t.Steps) == 0:
			return nil, fmt.Errorf("%w: %s has no steps", ErrInvalidTemplate, t.GoalType)
		}
		if _, dup := out[t.GoalType]; dup {
			return nil, fmt.Errorf("%w: duplicate template for %s", ErrInvalidTemplate, t.GoalType)
		}
		out[t.GoalType] = t
	}
	return out, nil
}

// instantiate returns deep copies of a template's steps.
func (t Template) instantiate() []plan.Step {
	steps := make([]plan.Step, len(t.Steps))
	for i := range t.Steps {
		steps[i] = t.Steps[i].Clone()
		if steps[i].Params == nil {
			steps[i].Params = map[string]any{}
		}
	}
	return steps
}
