package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID or name does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device whose ID or name is taken.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrCommandFailed is returned when the transport rejects or loses a command.
	ErrCommandFailed = errors.New("device: command failed")

	// ErrNoCommands is returned when SendCommands is called with an empty batch.
	ErrNoCommands = errors.New("device: no commands")
)
