package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/payment"
)

// ReconcilerStore is the slice of persistence the reconciler needs.
// Materialize must atomically (a) insert the order, (b) claim the payment
// session reference so no second order can ever cite it, and (c) mark the
// pending checkout completed with the order id. A redelivered event must
// surface ErrAlreadyMaterialized from either guard.
type ReconcilerStore interface {
	GetCheckout(ctx context.Context, checkoutID string) (*PendingCheckout, error)
	Materialize(ctx context.Context, o *order.Order, checkoutID string) error
	DeleteCart(ctx context.Context, ownerID string) error
}

// Publisher emits OrderCreated for the notifier and reporting projector.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, o *order.Order) error
}

// Reconciler turns verified completed-payment events into orders, exactly
// once per payment.
type Reconciler struct {
	store     ReconcilerStore
	publisher Publisher
}

func NewReconciler(store ReconcilerStore, publisher Publisher) *Reconciler {
	return &Reconciler{store: store, publisher: publisher}
}

// HandleCompletedPayment processes one completed-payment event.
//
// A nil error means the delivery is acknowledged, including the soft-fail
// discards (missing metadata, unknown checkout, already completed), which
// must not trigger redelivery of an event that can never reconcile. A non-nil
// error asks the platform to redeliver.
func (r *Reconciler) HandleCompletedPayment(ctx context.Context, cp *payment.CompletedPayment) error {
	if cp.CheckoutID == "" {
		log.Printf("[Reconciler] Event for session %s carries no checkout id, discarding", cp.SessionID)
		return nil
	}

	pc, err := r.store.GetCheckout(ctx, cp.CheckoutID)
	if err != nil {
		if errors.Is(err, ErrCheckoutNotFound) {
			log.Printf("[Reconciler] Pending checkout %s not found, discarding", cp.CheckoutID)
			return nil
		}
		return fmt.Errorf("failed to load pending checkout %s: %w", cp.CheckoutID, err)
	}

	// Idempotency guard: payment platforms redeliver events.
	if pc.Status == StatusCompleted {
		log.Printf("[Reconciler] Checkout %s already processed, skipping", cp.CheckoutID)
		return nil
	}

	o := buildOrder(pc, cp)
	if err := o.VerifyTotal(); err != nil {
		return fmt.Errorf("refusing to materialize %s: %w", cp.CheckoutID, err)
	}

	if err := r.store.Materialize(ctx, o, pc.ID); err != nil {
		if errors.Is(err, ErrAlreadyMaterialized) {
			// A concurrent or partially-crashed earlier delivery won the
			// race; the order exists, so this delivery is done.
			log.Printf("[Reconciler] Checkout %s materialized concurrently, skipping", cp.CheckoutID)
			return nil
		}
		return fmt.Errorf("failed to materialize order for %s: %w", cp.CheckoutID, err)
	}

	log.Printf("[Reconciler] Order %s (%s) created for checkout %s", o.OrderNumber, o.ID, pc.ID)

	// Primary cart-clearing path. The success page retries this best-effort,
	// so a failure here is logged rather than failing the delivery.
	if err := r.store.DeleteCart(ctx, pc.UserID); err != nil && !errors.Is(err, cart.ErrCartNotFound) {
		log.Printf("[Reconciler] Failed to clear cart for %s: %v", pc.UserID, err)
	}

	if r.publisher != nil {
		if err := r.publisher.PublishOrderCreated(ctx, o); err != nil {
			log.Printf("[Reconciler] Failed to publish OrderCreated for %s: %v", o.ID, err)
		}
	}

	return nil
}

// buildOrder freezes the pending checkout into an immutable order record.
func buildOrder(pc *PendingCheckout, cp *payment.CompletedPayment) *order.Order {
	items := make([]order.Item, 0, len(pc.Items))
	for _, line := range pc.Items {
		items = append(items, order.Item{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Name:      line.Name,
			SKU:       line.SKU,
			Image:     line.Image,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Total:     line.Total(),
		})
	}

	// Shipping and tax are placeholders until rate and tax computation land.
	var shippingCost, tax int64
	now := time.Now()

	return &order.Order{
		ID:              uuid.New().String(),
		OrderNumber:     order.GenerateOrderNumber(),
		UserID:          pc.UserID,
		UserEmail:       pc.UserEmail,
		Status:          order.StatusConfirmed,
		PaymentStatus:   order.PaymentPaid,
		Items:           items,
		ShippingAddress: pc.ShippingAddress,
		BillingAddress:  pc.BillingAddress,
		Subtotal:        pc.Subtotal,
		ShippingCost:    shippingCost,
		Tax:             tax,
		Discount:        pc.Discount,
		Total:           pc.Subtotal + shippingCost + tax - pc.Discount,
		PaymentMethod:   "card",
		PaymentIntentID: cp.PaymentIntentID,
		SessionID:       cp.SessionID,
		Notes:           pc.Notes,
		PaidAt:          &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
