// Package payment abstracts the hosted payment platform: session creation on
// the way out, signed webhook events on the way back. The rest of the system
// never talks to the platform SDK directly.
package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrSessionCreate    = errors.New("failed to create payment session")
)

// LineItem is one purchasable line in a hosted session.
type LineItem struct {
	Name       string
	UnitAmount int64 // minor currency units
	Quantity   int
	Image      string
}

// SessionRequest describes a hosted payment session. Metadata is limited to
// opaque reference ids; the platform enforces a tight size ceiling on it.
type SessionRequest struct {
	LineItems     []LineItem
	Discount      int64 // one-time discount in minor units; 0 means none
	CustomerEmail string
	ClientRefID   string
	CheckoutID    string // stored in session metadata for the webhook
	UserID        string // stored in session metadata for the webhook
	SuccessURL    string
	CancelURL     string
}

// Session is the created hosted session.
type Session struct {
	ID  string
	URL string
}

// CompletedPayment is the normalized form of a completed-payment webhook
// event. CheckoutID or UserID may be empty if the platform delivered an event
// this system did not originate.
type CompletedPayment struct {
	SessionID       string
	PaymentIntentID string
	CheckoutID      string
	UserID          string
}

// Event is a verified webhook delivery. Completed is nil for event types the
// reconciler does not act on (the delivery is still acknowledged).
type Event struct {
	ID        string
	Type      string
	Completed *CompletedPayment
}

// Provider is the payment platform.
type Provider interface {
	// CreateSession requests a hosted payment session and returns its id and
	// redirect URL.
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// VerifyEvent authenticates a raw webhook delivery against its signature
	// header before any parsing, returning ErrInvalidSignature on failure.
	VerifyEvent(payload []byte, signature string) (*Event, error)
}
