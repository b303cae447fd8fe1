package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

var (
	ErrCheckoutNotFound = errors.New("pending checkout not found")
	// ErrCheckoutExists is returned by stores when a checkout id is created
	// twice. Ids embed the owner and creation time, so a collision means a
	// duplicated staging write, never a second legitimate checkout.
	ErrCheckoutExists = errors.New("pending checkout already exists")
	// ErrAlreadyMaterialized is returned by stores when an order has already
	// been created for a pending checkout or payment reference. It is the
	// signal that a redelivered event must be a no-op.
	ErrAlreadyMaterialized = errors.New("checkout already materialized into an order")
)

// PendingCheckout stages the full checkout detail before the payment session
// exists. The payment platform only ever sees its ID: session metadata has a
// strict size ceiling, so the bulky detail stays here. Records are never
// deleted; a completed one is the audit trail of its order.
type PendingCheckout struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	Notes     string `json:"notes,omitempty"`

	ShippingAddress order.Address `json:"shipping_address"`
	BillingAddress  order.Address `json:"billing_address"`

	// Items are a frozen copy of the cart lines; prices were snapshotted when
	// the lines entered the cart.
	Items    []cart.Item `json:"items"`
	Subtotal int64       `json:"subtotal"`
	Discount int64       `json:"discount"`

	Status    Status `json:"status"`
	SessionID string `json:"session_id,omitempty"` // external payment-session id
	OrderID   string `json:"order_id,omitempty"`   // set when completed

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewCheckoutID builds the unique reference id passed through the payment
// platform's metadata. Owner id plus millisecond timestamp keeps ids unique
// per owner without a collision check.
func NewCheckoutID(userID string, now time.Time) string {
	return fmt.Sprintf("checkout_%s_%d", userID, now.UnixMilli())
}
