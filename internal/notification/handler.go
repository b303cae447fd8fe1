// Package notification turns order events into customer emails.
package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/events"
)

// Mailer is the slice of the email service this handler needs.
type Mailer interface {
	SendOrderConfirmation(o *order.Order) error
	SendShippingNotification(o *order.Order) error
}

// Handler processes order events and sends the matching notifications.
type Handler struct {
	mailer Mailer
}

func NewHandler(mailer Mailer) *Handler {
	return &Handler{mailer: mailer}
}

// HandleEvent processes one envelope from the order event stream. Events with
// no notification mapped to them are acknowledged silently.
func (h *Handler) HandleEvent(ctx context.Context, env *events.Envelope) error {
	switch env.Type {
	case events.TypeOrderCreated:
		return h.handleOrderCreated(env)
	case events.TypeOrderStatusChanged:
		return h.handleStatusChanged(env)
	default:
		return nil
	}
}

func (h *Handler) handleOrderCreated(env *events.Envelope) error {
	var e events.OrderCreated
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderCreated %s: %v", env.ID, err)
		return err
	}
	if e.Order == nil || e.Order.UserEmail == "" {
		log.Printf("[Notifier] OrderCreated %s carries no recipient, skipping", env.ID)
		return nil
	}

	if err := h.mailer.SendOrderConfirmation(e.Order); err != nil {
		log.Printf("[Notifier] Failed to send confirmation for order %s: %v", e.Order.ID, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation sent to %s for order %s", e.Order.UserEmail, e.Order.OrderNumber)
	return nil
}

func (h *Handler) handleStatusChanged(env *events.Envelope) error {
	var e events.OrderStatusChanged
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderStatusChanged %s: %v", env.ID, err)
		return err
	}
	if e.Order == nil || e.Order.UserEmail == "" {
		return nil
	}

	// Only the shipped transition emails the customer.
	if e.Order.Status != order.StatusShipped {
		return nil
	}

	if err := h.mailer.SendShippingNotification(e.Order); err != nil {
		log.Printf("[Notifier] Failed to send shipping notice for order %s: %v", e.Order.ID, err)
		return err
	}

	log.Printf("[Notifier] Shipping notice sent to %s for order %s", e.Order.UserEmail, e.Order.OrderNumber)
	return nil
}
