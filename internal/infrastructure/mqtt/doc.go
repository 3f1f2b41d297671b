// Package mqtt provides MQTT client connectivity for the Gray Logic Conductor.
//
// The conductor uses the broker in three ways:
//   - publishing device commands when the MQTT transport is selected
//   - publishing plan step events for dashboards and other listeners
//   - receiving weather readings that feed the environment snapshot
//
//	Conductor ↔ MQTT Broker ↔ device bridges / sensors / dashboards
//
// Connections auto-reconnect with exponential backoff and restore their
// subscriptions. A retained Last Will on conductor/system/status lets other
// services detect an unexpected disconnect.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Weather(), 1,
//	    func(topic string, payload []byte) error {
//	        return cache.Update(payload)
//	    })
//
//	client.PublishJSON(mqtt.Topics{}.DeviceCommand("light", "light-living"), cmd)
package mqtt
