package notify

import (
	"context"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/kafka"
)

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// KafkaRelay copies bus events to the notifications topic for the worker's email sender.
type KafkaRelay struct {
	producer   Producer
	topic      string
	maxRetries int
}

func NewKafkaRelay(producer Producer, topic string, maxRetries int) *KafkaRelay {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &KafkaRelay{producer: producer, topic: topic, maxRetries: maxRetries}
}

func (r *KafkaRelay) Relay(ctx context.Context, event domain.NotificationEvent) error {
	if r.producer == nil || r.topic == "" {
		return nil
	}
	return r.producer.PublishWithRetry(ctx, r.topic, event.UserID, ToMessage(event), r.maxRetries)
}

// ToMessage converts a bus event to its wire form.
func ToMessage(event domain.NotificationEvent) kafka.ConnectionEvent {
	msg := kafka.ConnectionEvent{
		Type:               string(event.Kind),
		ConnectionID:       event.ConnectionID,
		UserID:             event.UserID,
		CounterpartyUserID: event.CounterpartyUserID,
		Direction:          string(event.Direction),
		OccurredAt:         event.OccurredAt,
	}
	if event.Status != nil {
		msg.Status = string(*event.Status)
	}
	return msg
}
