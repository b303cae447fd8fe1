package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/payment"
)

var (
	ErrEmptyCart       = errors.New("no items in cart")
	ErrMissingAddress  = errors.New("shipping and billing addresses are required")
	ErrBelowMinimum    = errors.New("cart subtotal is below the minimum order amount")
)

// CheckoutStore is the slice of persistence the initiator needs.
type CheckoutStore interface {
	CreateCheckout(ctx context.Context, pc *PendingCheckout) error
	SetCheckoutSession(ctx context.Context, checkoutID, sessionID string) error
}

// Request is a checkout-session creation request. Items arrive already
// price-frozen from the cart.
type Request struct {
	UserID          string
	UserEmail       string
	Items           []cart.Item
	ShippingAddress order.Address
	BillingAddress  order.Address
	Notes           string
	Subtotal        int64
	Discount        int64
}

// Result carries the created session back to the caller for redirection.
type Result struct {
	CheckoutID string
	SessionID  string
	URL        string
}

// Initiator stages a pending checkout and requests a hosted payment session.
type Initiator struct {
	store      CheckoutStore
	provider   payment.Provider
	minOrder   int64 // minor currency units
	successURL string
	cancelURL  string
}

func NewInitiator(store CheckoutStore, provider payment.Provider, minOrder int64, successURL, cancelURL string) *Initiator {
	return &Initiator{
		store:      store,
		provider:   provider,
		minOrder:   minOrder,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// Initiate validates the request, persists a pending checkout, creates the
// hosted session and returns its redirect URL. Validation failures happen
// before any write. A session-creation failure after staging leaves the
// pending record orphaned in status=pending; it is never billed and serves
// as an audit trail, so no compensating delete is performed.
func (i *Initiator) Initiate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if req.ShippingAddress.Empty() || req.BillingAddress.Empty() {
		return nil, ErrMissingAddress
	}
	// The cart view already checked this, but the cart may have changed since
	// that render; the threshold is enforced again here.
	if req.Subtotal < i.minOrder {
		return nil, fmt.Errorf("%w: subtotal %d, minimum %d", ErrBelowMinimum, req.Subtotal, i.minOrder)
	}

	now := time.Now()
	pc := &PendingCheckout{
		ID:              NewCheckoutID(req.UserID, now),
		UserID:          req.UserID,
		UserEmail:       req.UserEmail,
		Notes:           req.Notes,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Items:           req.Items,
		Subtotal:        req.Subtotal,
		Discount:        req.Discount,
		Status:          StatusPending,
		CreatedAt:       now,
	}

	if err := i.store.CreateCheckout(ctx, pc); err != nil {
		return nil, fmt.Errorf("failed to stage pending checkout: %w", err)
	}

	lineItems := make([]payment.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, payment.LineItem{
			Name:       item.Name,
			UnitAmount: item.Price,
			Quantity:   item.Quantity,
			Image:      item.Image,
		})
	}

	sess, err := i.provider.CreateSession(ctx, payment.SessionRequest{
		LineItems:     lineItems,
		Discount:      req.Discount,
		CustomerEmail: req.UserEmail,
		ClientRefID:   req.UserID,
		CheckoutID:    pc.ID,
		UserID:        req.UserID,
		SuccessURL:    i.successURL,
		CancelURL:     i.cancelURL,
	})
	if err != nil {
		log.Printf("[Checkout] Session creation failed for %s, leaving pending record as audit trail: %v", pc.ID, err)
		return nil, err
	}

	// The session id on the pending record is the anchor the webhook and the
	// confirmation poller reconcile against.
	if err := i.store.SetCheckoutSession(ctx, pc.ID, sess.ID); err != nil {
		return nil, fmt.Errorf("failed to record session id on %s: %w", pc.ID, err)
	}

	log.Printf("[Checkout] Created session %s for checkout %s (subtotal %d, discount %d)",
		sess.ID, pc.ID, req.Subtotal, req.Discount)

	return &Result{CheckoutID: pc.ID, SessionID: sess.ID, URL: sess.URL}, nil
}
