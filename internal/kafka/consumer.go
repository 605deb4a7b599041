package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}

// ConsumeEvents decodes every message as a ConnectionEvent. Undecodable messages are skipped.
func (c *Consumer) ConsumeEvents(ctx context.Context, handler func(context.Context, ConnectionEvent) error) error {
	err := c.Consume(ctx, func(ctx context.Context, msg kafka.Message) error {
		event, err := DecodeEvent(msg.Value)
		if err != nil {
			log.Printf("kafka: skip undecodable message at offset %d: %v", msg.Offset, err)
			return nil
		}
		return handler(ctx, event)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func DecodeEvent(data []byte) (ConnectionEvent, error) {
	var event ConnectionEvent
	err := json.Unmarshal(data, &event)
	return event, err
}
