package order

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrOrderDelivered       = errors.New("cannot cancel a delivered order")
	ErrOrderCancelled       = errors.New("order is already cancelled")
	ErrTotalMismatch        = errors.New("order total does not match its breakdown")
	ErrUnknownPaymentStatus = errors.New("unknown payment status")
)

// Valid reports whether p is one of the known payment states.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return true
	}
	return false
}

// validTransitions defines allowed status transitions.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusShipped, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// Item is a line frozen into the order at materialization time.
type Item struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Image     string `json:"image,omitempty"`
	Price     int64  `json:"price"` // minor currency units, as captured in the cart
	Quantity  int    `json:"quantity"`
	Total     int64  `json:"total"` // Price * Quantity
}

// Address is a postal address frozen into the order.
type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Company    string `json:"company,omitempty"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Empty reports whether the address carries no usable destination.
func (a Address) Empty() bool {
	return a.Street1 == "" && a.City == "" && a.PostalCode == ""
}

// ShippingInfo tracks fulfilment of a shipped order.
type ShippingInfo struct {
	Method            string     `json:"method"`
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	TrackingURL       string     `json:"tracking_url,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
}

// Order is immutable once materialized, apart from status fields, shipping
// info and notes. All monetary amounts are integer minor currency units.
type Order struct {
	ID          string        `json:"id"`
	OrderNumber string        `json:"order_number"`
	UserID      string        `json:"user_id"`
	UserEmail   string        `json:"user_email"`

	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	Items           []Item  `json:"items"`
	ShippingAddress Address `json:"shipping_address"`
	BillingAddress  Address `json:"billing_address"`

	Subtotal     int64 `json:"subtotal"`
	ShippingCost int64 `json:"shipping_cost"`
	Tax          int64 `json:"tax"`
	Discount     int64 `json:"discount"`
	Total        int64 `json:"total"`

	PaymentMethod   string `json:"payment_method"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	SessionID       string `json:"session_id"` // external payment-session reference

	Shipping   *ShippingInfo `json:"shipping,omitempty"`
	Notes      string        `json:"notes,omitempty"`
	AdminNotes string        `json:"admin_notes,omitempty"`

	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CanTransitionTo checks whether the order may move to the target status.
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns the most specific error for a rejected transition.
func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case o.Status == StatusDelivered && target == StatusCancelled:
		return ErrOrderDelivered
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
	}
}

// VerifyTotal checks the monetary invariant
// total == subtotal + shippingCost + tax - discount.
func (o *Order) VerifyTotal() error {
	if o.Total != o.Subtotal+o.ShippingCost+o.Tax-o.Discount {
		return fmt.Errorf("%w: total=%d subtotal=%d shipping=%d tax=%d discount=%d",
			ErrTotalMismatch, o.Total, o.Subtotal, o.ShippingCost, o.Tax, o.Discount)
	}
	return nil
}

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderNumber builds a human-readable order number such as
// ORD-2026-K7Q2M9XA. The suffix is random display text, not a primary key;
// the order id is the unique identifier.
func GenerateOrderNumber() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable in practice; fall back to a
		// time-derived suffix rather than panic in the payment path.
		return fmt.Sprintf("ORD-%d-%08d", time.Now().Year(), time.Now().UnixNano()%1e8)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().Year(), string(buf))
}
