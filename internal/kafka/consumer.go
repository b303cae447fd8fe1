package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/example/letterpress-shop/internal/events"
)

// EnvelopeHandler processes one decoded event envelope. A non-nil error keeps
// the message uncommitted for redelivery on restart.
type EnvelopeHandler func(ctx context.Context, env *events.Envelope) error

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Consume reads envelopes until ctx is cancelled. Malformed payloads are
// logged and skipped; they would never decode on redelivery either.
func (c *Consumer) Consume(ctx context.Context, handler EnvelopeHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[Kafka] Error reading message: %v", err)
				continue
			}

			var env events.Envelope
			if err := json.Unmarshal(msg.Value, &env); err != nil {
				log.Printf("[Kafka] Skipping malformed envelope at offset %d: %v", msg.Offset, err)
				continue
			}

			if err := handler(ctx, &env); err != nil {
				log.Printf("[Kafka] Error handling %s event %s: %v", env.Type, env.ID, err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
