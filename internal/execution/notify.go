package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/mqtt"
)

// StepChannel is the WebSocket channel step notifications are broadcast on.
const StepChannel = "plan.step"

// NotificationSink receives step-start and step-end notifications.
// Errors are logged by the coordinator and otherwise ignored.
type NotificationSink interface {
	Notify(ctx context.Context, userID string, event StepEvent, phase Phase) error
}

// Notification is the wire form of a step notification.
type Notification struct {
	UserID string `json:"user_id"`
	Phase  Phase  `json:"phase"`
	StepEvent
}

// Recipient returns the user the notification is addressed to.
func (n Notification) Recipient() string { return n.UserID }

// FanoutSink delivers to every sink and joins their errors.
type FanoutSink []NotificationSink

// Notify implements NotificationSink.
func (f FanoutSink) Notify(ctx context.Context, userID string, event StepEvent, phase Phase) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, userID, event, phase); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broadcaster is the part of the WebSocket hub the coordinator needs.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// BroadcastSink publishes notifications on StepChannel.
type BroadcastSink struct {
	hub Broadcaster
}

// NewBroadcastSink creates a sink over a WebSocket hub.
func NewBroadcastSink(hub Broadcaster) *BroadcastSink {
	return &BroadcastSink{hub: hub}
}

// Notify implements NotificationSink.
func (s *BroadcastSink) Notify(_ context.Context, userID string, event StepEvent, phase Phase) error {
	s.hub.Broadcast(StepChannel, Notification{UserID: userID, Phase: phase, StepEvent: event})
	return nil
}

// Publisher publishes JSON payloads. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTSink publishes notifications to the user's event topic.
type MQTTSink struct {
	pub    Publisher
	topics mqtt.Topics
}

// NewMQTTSink creates a sink over an MQTT publisher.
func NewMQTTSink(pub Publisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

// Notify implements NotificationSink.
func (s *MQTTSink) Notify(_ context.Context, userID string, event StepEvent, phase Phase) error {
	topic := s.topics.StepEvent(userID)
	if err := s.pub.PublishJSON(topic, Notification{UserID: userID, Phase: phase, StepEvent: event}); err != nil {
		return fmt.Errorf("publishing step event to %s: %w", topic, err)
	}
	return nil
}

var _ Publisher = (*mqtt.Client)(nil)
