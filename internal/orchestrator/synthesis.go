package orchestrator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Defaults for synthesised steps when the text carries no number.
const (
	defaultBrightness = 80
	dimBrightness     = 30
	defaultTarget     = 70
	defaultVolume     = 30
)

var firstInteger = regexp.MustCompile(`-?\d+`)

// domainKeywords lists the synthesis domains in emission order.
var domainKeywords = []struct {
	kind     plan.SpecialistKind
	keywords []string
}{
	{plan.Ambiance, []string{"light", "lamp", "bright", "dim"}},
	{plan.Security, []string{"lock", "door"}},
	{plan.Energy, []string{"temperature", "thermostat", "heat", "warm", "cool"}},
	{plan.Wellness, []string{"music", "sound", "noise"}},
}

// synthesize builds steps for a custom goal from domain keywords in text.
// The first integer in the text, if any, becomes the brightness and
// thermostat target. With no keyword match it returns a single read-only
// status check.
func synthesize(text string) []plan.Step {
	lower := strings.ToLower(text)

	value, hasValue := 0, false
	if m := firstInteger.FindString(lower); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			value, hasValue = v, true
		}
	}

	var steps []plan.Step
	for _, d := range domainKeywords {
		if !containsAny(lower, d.keywords) {
			continue
		}
		s := plan.Step{Order: len(steps) + 1, Specialist: d.kind}
		switch d.kind {
		case plan.Ambiance:
			b := defaultBrightness
			if strings.Contains(lower, "dim") {
				b = dimBrightness
			}
			if hasValue {
				b = value
			}
			s.Action = "set_brightness"
			s.Description = "Adjust the living room light"
			s.DeviceHints = []string{livingRoomLight}
			s.Params = map[string]any{"brightness": b}
		case plan.Security:
			s.Action, s.Description = "lock", "Lock the front door"
			if strings.Contains(lower, "unlock") {
				s.Action, s.Description = "unlock", "Unlock the front door"
			}
			s.DeviceHints = []string{frontDoorLock}
			s.Params = map[string]any{"locked": s.Action == "lock"}
		case plan.Energy:
			t := defaultTarget
			if hasValue {
				t = value
			}
			s.Action = "set_temperature"
			s.Description = "Adjust the thermostat"
			s.DeviceHints = []string{bedroomThermostat}
			s.Params = map[string]any{"target": t}
		case plan.Wellness:
			s.Action = "play_sound"
			s.Description = "Play ambient sound in the living room"
			s.DeviceHints = []string{livingRoomSpeaker}
			s.Params = map[string]any{"sound": "ambient", "volume": defaultVolume}
		}
		steps = append(steps, s)
	}

	if len(steps) == 0 {
		steps = append(steps, plan.Step{
			Order:       1,
			Specialist:  plan.Ambiance,
			Action:      "status_check",
			Description: "Check the living room",
			DeviceHints: []string{livingRoomLight},
			Params:      map[string]any{},
		})
	}
	return steps
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
