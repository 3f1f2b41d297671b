package mqtt

import "fmt"

// TopicPrefix is the root of every conductor topic.
const TopicPrefix = "conductor"

// Topics provides builders for conductor MQTT topics so that publishers and
// subscribers agree on naming.
//
//	topics := mqtt.Topics{}
//	topics.DeviceCommand("light", "light-living")
//	// Returns: "conductor/command/light/light-living"
type Topics struct{}

// DeviceCommand is where device bridges receive commands.
//
// Example: conductor/command/thermostat/thermostat-bedroom
func (Topics) DeviceCommand(deviceType, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, deviceType, deviceID)
}

// DeviceState carries the conductor's view of a device after a command.
//
// Example: conductor/state/lock-front-door
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// StepEvent carries plan step progress for one user.
//
// Example: conductor/event/alice/step
func (Topics) StepEvent(userID string) string {
	return fmt.Sprintf("%s/event/%s/step", TopicPrefix, userID)
}

// AllStepEvents matches step events for every user.
//
// Pattern: conductor/event/+/step
func (Topics) AllStepEvents() string {
	return fmt.Sprintf("%s/event/+/step", TopicPrefix)
}

// Weather is the default topic for outdoor sensor readings.
func (Topics) Weather() string {
	return TopicPrefix + "/sensor/weather"
}

// SystemStatus carries the retained online/offline status.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}
