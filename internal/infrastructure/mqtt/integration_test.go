//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/config"
)

// Requires a broker at 127.0.0.1:1883.
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_PublishSubscribeRoundtrip(t *testing.T) {
	client, err := Connect(integrationConfig("conductor-integration"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var mu sync.Mutex
	var got []byte
	received := make(chan struct{})

	topic := Topics{}.StepEvent("integration-user")
	err = client.Subscribe(Topics{}.AllStepEvents(), 1, func(_ string, payload []byte) error {
		mu.Lock()
		got = payload
		mu.Unlock()
		close(received)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.PublishJSON(topic, map[string]string{"phase": "executing"}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(got) != `{"phase":"executing"}` {
		t.Errorf("payload = %s", got)
	}
}
