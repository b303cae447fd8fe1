// Package kafka wraps the segmentio client with the envelope conventions the
// order event stream uses: one topic, envelopes keyed by order id.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/events"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// Publish writes one envelope, keyed by order id so every event for an order
// lands on the same partition in order.
func (p *Producer) Publish(ctx context.Context, env *events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.OrderID),
		Value: data,
		Time:  env.Timestamp,
	})
}

// PublishOrderCreated satisfies the reconciler's Publisher interface.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	env, err := events.Wrap(events.TypeOrderCreated, o.ID, events.OrderCreated{Order: o})
	if err != nil {
		return fmt.Errorf("failed to wrap OrderCreated: %w", err)
	}
	return p.Publish(ctx, env)
}

// PublishOrderStatusChanged satisfies the order service's Publisher interface.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, o *order.Order, from order.Status) error {
	env, err := events.Wrap(events.TypeOrderStatusChanged, o.ID, events.OrderStatusChanged{Order: o, From: from})
	if err != nil {
		return fmt.Errorf("failed to wrap OrderStatusChanged: %w", err)
	}
	return p.Publish(ctx, env)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
