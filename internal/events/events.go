// Package events defines the order lifecycle events published to Kafka for
// the notifier and the reporting projector.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/example/letterpress-shop/internal/domain/order"
)

const (
	TypeOrderCreated       = "OrderCreated"
	TypeOrderStatusChanged = "OrderStatusChanged"
)

// Envelope wraps a serialized event payload with routing metadata.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	OrderID   string          `json:"order_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderCreated is emitted exactly once per materialized order, by the
// webhook reconciler.
type OrderCreated struct {
	Order *order.Order `json:"order"`
}

// OrderStatusChanged is emitted by administrative status transitions.
type OrderStatusChanged struct {
	Order *order.Order `json:"order"`
	From  order.Status `json:"from"`
}

// Wrap serializes a payload into an Envelope.
func Wrap(eventType, orderID string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		OrderID:   orderID,
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}
