package cart

import (
	"errors"
	"time"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrIndexOutOfRange = errors.New("line item index out of range")
)

// Item is a single cart line. Price is the unit price captured when the item
// was added; catalog price changes never flow back into an existing line.
type Item struct {
	ProductID string    `json:"product_id"`
	VariantID string    `json:"variant_id,omitempty"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku,omitempty"`
	Image     string    `json:"image,omitempty"`
	Price     int64     `json:"price"` // minor currency units
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Total returns the line total in minor currency units.
func (i Item) Total() int64 {
	return i.Price * int64(i.Quantity)
}

// Cart is the single mutable cart document for one owner. OwnerID is either a
// user id or an anonymous session id; the two are never mixed. ItemCount and
// Subtotal are denormalized and must be recomputed from Items on every
// mutation, in the same write as the item change.
type Cart struct {
	OwnerID    string     `json:"owner_id"`
	Items      []Item     `json:"items"`
	ItemCount  int        `json:"item_count"`
	Subtotal   int64      `json:"subtotal"` // minor currency units
	CouponCode string     `json:"coupon_code,omitempty"`
	Discount   int64      `json:"discount"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// New returns an empty cart for the owner.
func New(ownerID string) *Cart {
	now := time.Now()
	return &Cart{
		OwnerID:   ownerID,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// recompute refreshes the denormalized aggregates from the item list and
// bumps UpdatedAt. Every mutation must go through here before the cart is
// persisted so readers never observe itemCount and subtotal out of sync
// with the items.
func (c *Cart) recompute() {
	count := 0
	var subtotal int64
	for _, item := range c.Items {
		count += item.Quantity
		subtotal += item.Total()
	}
	c.ItemCount = count
	c.Subtotal = subtotal
	c.UpdatedAt = time.Now()
}

// AddItem merges by (ProductID, VariantID) identity: an existing line gets its
// quantity incremented and keeps its originally captured price; otherwise the
// item is appended with AddedAt set to now.
func (c *Cart) AddItem(item Item) error {
	if item.ProductID == "" {
		return ErrInvalidProduct
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID && c.Items[i].VariantID == item.VariantID {
			c.Items[i].Quantity += item.Quantity
			c.recompute()
			return nil
		}
	}

	item.AddedAt = time.Now()
	c.Items = append(c.Items, item)
	c.recompute()
	return nil
}

// UpdateQuantity replaces the quantity of the line at index.
func (c *Cart) UpdateQuantity(index, quantity int) error {
	if index < 0 || index >= len(c.Items) {
		return ErrIndexOutOfRange
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	c.Items[index].Quantity = quantity
	c.recompute()
	return nil
}

// RemoveItem deletes the line at index.
func (c *Cart) RemoveItem(index int) error {
	if index < 0 || index >= len(c.Items) {
		return ErrIndexOutOfRange
	}
	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	c.recompute()
	return nil
}

// SetCoupon attaches a coupon code and its discount amount in minor units.
// Passing an empty code clears both.
func (c *Cart) SetCoupon(code string, discount int64) {
	if code == "" {
		c.CouponCode = ""
		c.Discount = 0
	} else {
		c.CouponCode = code
		c.Discount = discount
	}
	c.recompute()
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
