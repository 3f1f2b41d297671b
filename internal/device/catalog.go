package device

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of a device catalog.
//
//	devices:
//	  - id: light-living
//	    name: Living Room Light
//	    type: light
//	    room: living_room
//	    commands:
//	      power: switch_led
//	      brightness: bright_value
//	    state:
//	      switch_led: false
type catalogFile struct {
	Devices []Device `yaml:"devices"`
}

// LoadCatalog reads and validates a YAML device catalog.
func LoadCatalog(path string) ([]Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML device catalog. IDs and names must be unique.
func ParseCatalog(data []byte) ([]Device, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing device catalog: %w", err)
	}

	seenIDs := make(map[string]bool, len(file.Devices))
	seenNames := make(map[string]bool, len(file.Devices))
	for i := range file.Devices {
		d := &file.Devices[i]
		if d.ID == "" {
			return nil, fmt.Errorf("%w: device %d has no id", ErrInvalidDevice, i)
		}
		if err := ValidateDevice(d); err != nil {
			return nil, err
		}
		if seenIDs[d.ID] || seenNames[d.Name] {
			return nil, fmt.Errorf("%w: duplicate device %q", ErrDeviceExists, d.ID)
		}
		seenIDs[d.ID] = true
		seenNames[d.Name] = true
		if d.State == nil {
			d.State = State{}
		}
	}
	return file.Devices, nil
}

// Provider data-point identifiers used by the built-in catalog.
var (
	lightCommands = map[string]string{
		"power":      "switch_led",
		"brightness": "bright_value",
		"color_temp": "temp_value",
		"color":      "colour_data",
	}
	lockCommands = map[string]string{
		"locked": "lock_motor_state",
	}
	thermostatCommands = map[string]string{
		"power":  "switch",
		"target": "temp_set",
		"mode":   "mode",
	}
	speakerCommands = map[string]string{
		"power":  "switch",
		"sound":  "sound_id",
		"volume": "volume_set",
	}
	windowCommands = map[string]string{
		"closed": "control_closed",
	}
)

// DefaultCatalog returns the demonstration household used when no catalog
// file is configured.
func DefaultCatalog() []Device {
	light := func(id, name, room string) Device {
		return Device{
			ID: id, Name: name, Type: DeviceTypeLight, Room: room,
			Commands: lightCommands,
			State:    State{"switch_led": false, "bright_value": 100, "temp_value": 4000},
		}
	}
	lock := func(id, name string) Device {
		return Device{
			ID: id, Name: name, Type: DeviceTypeLock, Room: "entrance",
			Commands: lockCommands,
			State:    State{"lock_motor_state": false},
		}
	}
	speaker := func(id, name, room string) Device {
		return Device{
			ID: id, Name: name, Type: DeviceTypeSpeaker, Room: room,
			Commands: speakerCommands,
			State:    State{"switch": false, "volume_set": 30},
		}
	}

	devices := []Device{
		light("light-living", "Living Room Light", "living_room"),
		light("light-bedroom", "Bedroom Light", "bedroom"),
		light("light-kitchen", "Kitchen Light", "kitchen"),
		light("light-hallway", "Hallway Light", "hallway"),
		lock("lock-front", "Front Door Lock"),
		lock("lock-back", "Back Door Lock"),
		{
			ID: "thermostat-bedroom", Name: "Bedroom Thermostat", Type: DeviceTypeThermostat, Room: "bedroom",
			Commands: thermostatCommands,
			State:    State{"switch": true, "temp_set": 68, "temp_current": 67, "mode": "auto"},
		},
		speaker("speaker-bedroom", "Bedroom Speaker", "bedroom"),
		speaker("speaker-living", "Living Room Speaker", "living_room"),
		{
			ID: "window-living", Name: "Living Room Windows", Type: DeviceTypeWindow, Room: "living_room",
			Commands: windowCommands,
			State:    State{"control_closed": false},
		},
	}

	// Each device gets its own maps.
	for i := range devices {
		devices[i] = *devices[i].DeepCopy()
	}
	return devices
}
