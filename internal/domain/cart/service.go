package cart

import (
	"context"
	"errors"
	"fmt"
)

// Store is the slice of persistence the cart service needs. UpdateCart must
// fail with ErrCartNotFound when the document does not exist; PutCart is the
// initializing write.
type Store interface {
	GetCart(ctx context.Context, ownerID string) (*Cart, error)
	PutCart(ctx context.Context, c *Cart) error
	UpdateCart(ctx context.Context, c *Cart) error
	DeleteCart(ctx context.Context, ownerID string) error
}

// Service performs cart mutations. Every mutation recomputes the denormalized
// aggregates and persists them together with the item change in a single
// write, so concurrent readers never observe a cart whose itemCount or
// subtotal disagrees with its items.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the owner's cart, or ErrCartNotFound if none exists yet.
func (s *Service) Get(ctx context.Context, ownerID string) (*Cart, error) {
	return s.store.GetCart(ctx, ownerID)
}

// AddItem adds (or merges) an item. The cart is created lazily on the first
// add; all later mutations require the cart to exist.
func (s *Service) AddItem(ctx context.Context, ownerID string, item Item) (*Cart, error) {
	c, err := s.store.GetCart(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			return nil, fmt.Errorf("failed to load cart for %s: %w", ownerID, err)
		}
		c = New(ownerID)
		if err := c.AddItem(item); err != nil {
			return nil, err
		}
		if err := s.store.PutCart(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to create cart for %s: %w", ownerID, err)
		}
		return c, nil
	}

	if err := c.AddItem(item); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCart(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update cart for %s: %w", ownerID, err)
	}
	return c, nil
}

// UpdateQuantity replaces the quantity of the line at index.
func (s *Service) UpdateQuantity(ctx context.Context, ownerID string, index, quantity int) (*Cart, error) {
	c, err := s.store.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateQuantity(index, quantity); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCart(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update cart for %s: %w", ownerID, err)
	}
	return c, nil
}

// RemoveItem deletes the line at index.
func (s *Service) RemoveItem(ctx context.Context, ownerID string, index int) (*Cart, error) {
	c, err := s.store.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(index); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCart(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update cart for %s: %w", ownerID, err)
	}
	return c, nil
}

// SetCoupon attaches or clears a coupon on the cart.
func (s *Service) SetCoupon(ctx context.Context, ownerID, code string, discount int64) (*Cart, error) {
	c, err := s.store.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	c.SetCoupon(code, discount)
	if err := s.store.UpdateCart(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update cart for %s: %w", ownerID, err)
	}
	return c, nil
}

// Clear deletes the cart document entirely.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	return s.store.DeleteCart(ctx, ownerID)
}
