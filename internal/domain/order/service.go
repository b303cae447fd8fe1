package order

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Store is the slice of order persistence the admin service needs.
type Store interface {
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
}

// Publisher emits order lifecycle events for downstream consumers
// (notifier, reporting projector). A nil publisher disables publishing.
type Publisher interface {
	PublishOrderStatusChanged(ctx context.Context, o *Order, from Status) error
}

// Service applies administrative mutations to materialized orders. Order
// creation itself belongs to the webhook reconciler, not this service.
type Service struct {
	store     Store
	publisher Publisher
}

func NewService(store Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// UpdateStatus moves an order along the transition table and stamps the
// matching milestone timestamp.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target Status) (*Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.CanTransitionTo(target) {
		return nil, o.transitionError(target)
	}

	from := o.Status
	now := time.Now()
	o.Status = target
	o.UpdatedAt = now

	switch target {
	case StatusCancelled:
		o.CancelledAt = &now
	case StatusRefunded:
		o.RefundedAt = &now
		o.PaymentStatus = PaymentRefunded
	case StatusShipped:
		if o.Shipping == nil {
			o.Shipping = &ShippingInfo{Method: "standard"}
		}
		o.Shipping.ShippedAt = &now
	case StatusDelivered:
		if o.Shipping == nil {
			o.Shipping = &ShippingInfo{Method: "standard"}
		}
		o.Shipping.DeliveredAt = &now
	}

	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderStatusChanged(ctx, o, from); err != nil {
			log.Printf("[Order] Failed to publish status change for %s: %v", orderID, err)
		}
	}

	return o, nil
}

// UpdatePaymentStatus changes only the payment status. Marking paid stamps
// PaidAt if the webhook has not already done so.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID string, target PaymentStatus) (*Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, target)
	}

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	o.PaymentStatus = target
	o.UpdatedAt = now
	if target == PaymentPaid && o.PaidAt == nil {
		o.PaidAt = &now
	}

	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	return o, nil
}

// UpdateShipping replaces the shipping sub-record (carrier, tracking).
func (s *Service) UpdateShipping(ctx context.Context, orderID string, info ShippingInfo) (*Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.Shipping != nil {
		// Milestone timestamps are owned by status transitions.
		info.ShippedAt = o.Shipping.ShippedAt
		info.DeliveredAt = o.Shipping.DeliveredAt
	}
	o.Shipping = &info
	o.UpdatedAt = time.Now()

	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	return o, nil
}

// SetAdminNotes replaces the customer-invisible notes.
func (s *Service) SetAdminNotes(ctx context.Context, orderID, notes string) (*Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	o.AdminNotes = notes
	o.UpdatedAt = time.Now()

	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	return o, nil
}
