package device

import (
	"context"
	"fmt"
	"sync"
)

// Outcome is one scripted transport response.
type Outcome int

// Scripted outcomes.
const (
	// OutcomeApply acknowledges and applies every command.
	OutcomeApply Outcome = iota
	// OutcomeFail rejects the batch with ErrCommandFailed.
	OutcomeFail
	// OutcomeIgnore acknowledges the batch but applies nothing.
	OutcomeIgnore
)

// SentBatch records one call made to a ScriptedTransport.
type SentBatch struct {
	DeviceID string
	Commands []Command
	Outcome  Outcome
}

// ScriptedTransport is a deterministic Transport for tests and dry
// rehearsals. Each device has a queue of outcomes consumed one per call;
// once the queue is empty the device's default outcome applies.
type ScriptedTransport struct {
	mu       sync.Mutex
	queues   map[string][]Outcome
	defaults map[string]Outcome
	sent     []SentBatch
}

// NewScriptedTransport returns a transport that applies everything until scripted otherwise.
func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{
		queues:   make(map[string][]Outcome),
		defaults: make(map[string]Outcome),
	}
}

// Script appends outcomes to a device's queue.
func (t *ScriptedTransport) Script(deviceID string, outcomes ...Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queues[deviceID] = append(t.queues[deviceID], outcomes...)
}

// SetDefault sets the outcome used once a device's queue is exhausted.
func (t *ScriptedTransport) SetDefault(deviceID string, o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defaults[deviceID] = o
}

// Send consumes the next scripted outcome for the device.
func (t *ScriptedTransport) Send(_ context.Context, d *Device, cmds []Command) ([]Command, error) {
	t.mu.Lock()
	outcome := t.defaults[d.ID]
	if q := t.queues[d.ID]; len(q) > 0 {
		outcome = q[0]
		t.queues[d.ID] = q[1:]
	}
	batch := make([]Command, len(cmds))
	copy(batch, cmds)
	t.sent = append(t.sent, SentBatch{DeviceID: d.ID, Commands: batch, Outcome: outcome})
	t.mu.Unlock()

	switch outcome {
	case OutcomeFail:
		return nil, fmt.Errorf("%w: scripted failure for %s", ErrCommandFailed, d.ID)
	case OutcomeIgnore:
		return nil, nil
	default:
		return cmds, nil
	}
}

// Calls returns how many batches were sent to deviceID.
func (t *ScriptedTransport) Calls(deviceID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, b := range t.sent {
		if b.DeviceID == deviceID {
			n++
		}
	}
	return n
}

// Sent returns a copy of every recorded batch in call order.
func (t *ScriptedTransport) Sent() []SentBatch {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SentBatch, len(t.sent))
	copy(out, t.sent)
	return out
}
