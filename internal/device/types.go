package device

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Device is a controllable entity known to the conductor.
//
// Commands maps semantic parameter names used by plans ("brightness",
// "locked", "target") to the provider's data-point identifiers
// ("bright_value", "lock_motor_state", "temp_set"). State is keyed by the
// provider identifiers.
type Device struct {
	ID   string     `json:"id" yaml:"id"`
	Name string     `json:"name" yaml:"name"`
	Type DeviceType `json:"type" yaml:"type"`
	Room string     `json:"room,omitempty" yaml:"room"`

	Commands map[string]string `json:"commands" yaml:"commands"`

	State          State      `json:"state" yaml:"state"`
	StateUpdatedAt *time.Time `json:"state_updated_at,omitempty" yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// State is a device's current data-point values keyed by provider identifier.
type State map[string]any

// DeviceType classifies devices for specialist routing and bulk operations.
type DeviceType string

// Known device types.
const (
	DeviceTypeLight      DeviceType = "light"
	DeviceTypeLock       DeviceType = "lock"
	DeviceTypeThermostat DeviceType = "thermostat"
	DeviceTypeSpeaker    DeviceType = "speaker"
	DeviceTypeWindow     DeviceType = "window"
	DeviceTypeSensor     DeviceType = "sensor"
)

// AllDeviceTypes returns every known device type.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeLight,
		DeviceTypeLock,
		DeviceTypeThermostat,
		DeviceTypeSpeaker,
		DeviceTypeWindow,
		DeviceTypeSensor,
	}
}

// IsValid reports whether t is a known device type.
func (t DeviceType) IsValid() bool {
	for _, known := range AllDeviceTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Command is a single provider-level instruction: set data point Name to Value.
type Command struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Command result statuses.
const (
	CommandStatusOK    = "ok"
	CommandStatusError = "error"
)

// CommandResult reports the outcome of one SendCommands call.
type CommandResult struct {
	DeviceID  string        `json:"device_id"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
	CommandID string        `json:"command_id"`
}

// ProviderCode returns the provider identifier for a semantic parameter and
// whether the device declares a mapping for it.
func (d *Device) ProviderCode(semantic string) (string, bool) {
	code, ok := d.Commands[semantic]
	if !ok || code == "" {
		return semantic, false
	}
	return code, true
}

// DeepCopy returns an independent copy; maps are cloned so that cached
// devices cannot be mutated through returned values.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.State = State(deepCopyMap(d.State))
	if d.Commands != nil {
		cpy.Commands = make(map[string]string, len(d.Commands))
		for k, v := range d.Commands {
			cpy.Commands[k] = v
		}
	}
	if d.StateUpdatedAt != nil {
		t := *d.StateUpdatedAt
		cpy.StateUpdatedAt = &t
	}
	return &cpy
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return State(deepCopyMap(s))
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case State:
		return State(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}

// ValuesEqual compares two state values, treating all numeric kinds as
// float64 so that 30 (int from a plan) equals 30.0 (float64 from JSON).
func ValuesEqual(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.EqualFold(as, bs)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// GenerateID returns a new random device or command identifier.
func GenerateID() string {
	return uuid.New().String()
}
