// Package projection feeds the order event stream into the PostgreSQL
// reporting read model.
package projection

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/events"
)

// Sink is the slice of the reporting store the projector writes to.
type Sink interface {
	UpsertOrder(o *order.Order) error
}

// Projector applies order events to the reporting sink. Upserts are
// idempotent, so redelivered events converge to the same row.
type Projector struct {
	sink Sink
}

func NewProjector(sink Sink) *Projector {
	return &Projector{sink: sink}
}

// HandleEvent applies one envelope. Unknown event types are acknowledged.
func (p *Projector) HandleEvent(ctx context.Context, env *events.Envelope) error {
	var o *order.Order

	switch env.Type {
	case events.TypeOrderCreated:
		var e events.OrderCreated
		if err := json.Unmarshal(env.Data, &e); err != nil {
			log.Printf("[Projector] Failed to unmarshal OrderCreated %s: %v", env.ID, err)
			return err
		}
		o = e.Order
	case events.TypeOrderStatusChanged:
		var e events.OrderStatusChanged
		if err := json.Unmarshal(env.Data, &e); err != nil {
			log.Printf("[Projector] Failed to unmarshal OrderStatusChanged %s: %v", env.ID, err)
			return err
		}
		o = e.Order
	default:
		return nil
	}

	if o == nil {
		log.Printf("[Projector] Event %s carries no order, skipping", env.ID)
		return nil
	}

	if err := p.sink.UpsertOrder(o); err != nil {
		log.Printf("[Projector] Failed to project order %s: %v", o.ID, err)
		return err
	}

	log.Printf("[Projector] Projected %s for order %s (%s)", env.Type, o.OrderNumber, string(o.Status))
	return nil
}
