package device

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/mqtt"
)

// Transport delivers provider commands to a physical or simulated device.
//
// Send returns the commands the provider reports as applied. A provider may
// acknowledge a batch without applying all of it; the actuation service only
// mutates state for the applied commands, so post-checks can catch the gap.
type Transport interface {
	Send(ctx context.Context, d *Device, cmds []Command) (applied []Command, err error)
}

// SimulatedTransport stands in for a cloud device API. Each call sleeps for
// a random latency within [MinLatency, MaxLatency] and fails independently
// with probability FailureRate.
type SimulatedTransport struct {
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// SimulationOptions configures a SimulatedTransport.
type SimulationOptions struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64

	// Seed fixes the random sequence. Zero seeds from the clock.
	Seed int64
}

// NewSimulatedTransport creates a simulated transport.
func NewSimulatedTransport(opts SimulationOptions) *SimulatedTransport {
	seed := uint64(opts.Seed) //nolint:gosec // seed bits only
	if opts.Seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // seed bits only
	}
	if opts.MaxLatency < opts.MinLatency {
		opts.MaxLatency = opts.MinLatency
	}
	return &SimulatedTransport{
		minLatency:  opts.MinLatency,
		maxLatency:  opts.MaxLatency,
		failureRate: opts.FailureRate,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // simulation, not crypto
	}
}

// Send simulates one provider round trip.
func (t *SimulatedTransport) Send(ctx context.Context, d *Device, cmds []Command) ([]Command, error) {
	t.mu.Lock()
	latency := t.minLatency
	if spread := t.maxLatency - t.minLatency; spread > 0 {
		latency += time.Duration(t.rng.Int64N(int64(spread) + 1))
	}
	fail := t.failureRate > 0 && t.rng.Float64() < t.failureRate
	t.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrCommandFailed, ctx.Err())
		case <-timer.C:
		}
	}

	if fail {
		return nil, fmt.Errorf("%w: simulated provider error for %s", ErrCommandFailed, d.ID)
	}
	return cmds, nil
}

// Publisher is the subset of the MQTT client used by MQTTTransport.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTTransport publishes commands to conductor/command/{type}/{id} for a
// device bridge to execute. Publication success is treated as application.
type MQTTTransport struct {
	pub Publisher
}

// NewMQTTTransport creates a transport over an MQTT publisher.
func NewMQTTTransport(pub Publisher) *MQTTTransport {
	return &MQTTTransport{pub: pub}
}

type commandMessage struct {
	CommandID string    `json:"command_id"`
	DeviceID  string    `json:"device_id"`
	Commands  []Command `json:"commands"`
	Timestamp time.Time `json:"timestamp"`
}

// Send publishes the command batch.
func (t *MQTTTransport) Send(ctx context.Context, d *Device, cmds []Command) ([]Command, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}

	msg := commandMessage{
		CommandID: GenerateID(),
		DeviceID:  d.ID,
		Commands:  cmds,
		Timestamp: time.Now().UTC(),
	}
	topic := mqtt.Topics{}.DeviceCommand(string(d.Type), d.ID)
	if err := t.pub.PublishJSON(topic, msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}
	return cmds, nil
}
