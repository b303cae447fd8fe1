// Package store provides the document persistence layer: an in-memory
// implementation for tests and local development, and a DynamoDB
// implementation for deployment. Consumers declare their own narrow
// interfaces; both implementations satisfy all of them.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/letterpress-shop/internal/checkout"
	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/domain/product"
	"github.com/example/letterpress-shop/internal/domain/user"
)

// Memory is a mutex-guarded document store. Documents are held as JSON so
// callers get value semantics, the same as a real document database.
type Memory struct {
	mu          sync.RWMutex
	carts       map[string][]byte // ownerID -> cart
	checkouts   map[string][]byte // checkoutID -> pending checkout
	orders      map[string][]byte // orderID -> order
	products    map[string][]byte // productID -> product
	users       map[string][]byte // userID -> user
	sessionRefs map[string]string // payment sessionID -> orderID (uniqueness guard)
}

func NewMemory() *Memory {
	return &Memory{
		carts:       make(map[string][]byte),
		checkouts:   make(map[string][]byte),
		orders:      make(map[string][]byte),
		products:    make(map[string][]byte),
		users:       make(map[string][]byte),
		sessionRefs: make(map[string]string),
	}
}

func put(m map[string][]byte, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m[key] = data
	return nil
}

// Carts

func (s *Memory) GetCart(ctx context.Context, ownerID string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.carts[ownerID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Memory) PutCart(ctx context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.carts, c.OwnerID, c)
}

func (s *Memory) UpdateCart(ctx context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[c.OwnerID]; !ok {
		return cart.ErrCartNotFound
	}
	return put(s.carts, c.OwnerID, c)
}

func (s *Memory) DeleteCart(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[ownerID]; !ok {
		return cart.ErrCartNotFound
	}
	delete(s.carts, ownerID)
	return nil
}

// Pending checkouts

func (s *Memory) CreateCheckout(ctx context.Context, pc *checkout.PendingCheckout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checkouts[pc.ID]; ok {
		return checkout.ErrCheckoutExists
	}
	return put(s.checkouts, pc.ID, pc)
}

func (s *Memory) GetCheckout(ctx context.Context, checkoutID string) (*checkout.PendingCheckout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCheckoutLocked(checkoutID)
}

func (s *Memory) getCheckoutLocked(checkoutID string) (*checkout.PendingCheckout, error) {
	data, ok := s.checkouts[checkoutID]
	if !ok {
		return nil, checkout.ErrCheckoutNotFound
	}
	var pc checkout.PendingCheckout
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, err
	}
	return &pc, nil
}

func (s *Memory) SetCheckoutSession(ctx context.Context, checkoutID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, err := s.getCheckoutLocked(checkoutID)
	if err != nil {
		return err
	}
	pc.SessionID = sessionID
	return put(s.checkouts, checkoutID, pc)
}

// PurgeStaleCheckouts removes pending (never completed) checkout records
// older than the retention window and returns how many were removed.
// Completed records are the audit trail and are never purged.
func (s *Memory) PurgeStaleCheckouts(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, data := range s.checkouts {
		var pc checkout.PendingCheckout
		if err := json.Unmarshal(data, &pc); err != nil {
			continue
		}
		if pc.Status == checkout.StatusPending && pc.CreatedAt.Before(olderThan) {
			delete(s.checkouts, id)
			purged++
		}
	}
	return purged, nil
}

// Orders

// Materialize is the reconciler's atomic commit: the order insert, the
// payment-reference claim and the pending-checkout completion succeed or fail
// together under one lock, so a redelivered event can never mint a second
// order, even after a crash between what would otherwise be separate writes.
func (s *Memory) Materialize(ctx context.Context, o *order.Order, checkoutID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, claimed := s.sessionRefs[o.SessionID]; claimed {
		return checkout.ErrAlreadyMaterialized
	}
	if _, exists := s.orders[o.ID]; exists {
		return checkout.ErrAlreadyMaterialized
	}
	pc, err := s.getCheckoutLocked(checkoutID)
	if err != nil {
		return err
	}
	if pc.Status == checkout.StatusCompleted {
		return checkout.ErrAlreadyMaterialized
	}

	if err := put(s.orders, o.ID, o); err != nil {
		return err
	}
	s.sessionRefs[o.SessionID] = o.ID

	now := time.Now()
	pc.Status = checkout.StatusCompleted
	pc.OrderID = o.ID
	pc.CompletedAt = &now
	return put(s.checkouts, checkoutID, pc)
}

func (s *Memory) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	var o order.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Memory) UpdateOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return order.ErrOrderNotFound
	}
	return put(s.orders, o.ID, o)
}

// GetOrderBySession matches strictly on the (userID, sessionID) pair.
func (s *Memory) GetOrderBySession(ctx context.Context, userID, sessionID string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, data := range s.orders {
		var o order.Order
		if err := json.Unmarshal(data, &o); err != nil {
			continue
		}
		if o.UserID == userID && o.SessionID == sessionID {
			return &o, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (s *Memory) ListOrdersByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]*order.Order, 0)
	for _, data := range s.orders {
		var o order.Order
		if err := json.Unmarshal(data, &o); err != nil {
			continue
		}
		if o.UserID == userID {
			cp := o
			orders = append(orders, &cp)
		}
	}
	return orders, nil
}

// Products

func (s *Memory) CreateProduct(ctx context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(s.products, p.ID, p)
}

func (s *Memory) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	var p product.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Memory) UpdateProduct(ctx context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return product.ErrProductNotFound
	}
	return put(s.products, p.ID, p)
}

func (s *Memory) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return product.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Memory) ListProducts(ctx context.Context) ([]*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]*product.Product, 0, len(s.products))
	for _, data := range s.products {
		var p product.Product
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		cp := p
		products = append(products, &cp)
	}
	return products, nil
}

// Users

func (s *Memory) CreateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putUserLocked(u)
}

func (s *Memory) GetUser(ctx context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return unmarshalUser(data)
}

func (s *Memory) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, data := range s.users {
		u, err := unmarshalUser(data)
		if err != nil {
			continue
		}
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (s *Memory) UpdateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	return s.putUserLocked(u)
}

func (s *Memory) ListUsers(ctx context.Context) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*user.User, 0, len(s.users))
	for _, data := range s.users {
		u, err := unmarshalUser(data)
		if err != nil {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Memory) putUserLocked(u *user.User) error {
	data, err := marshalUser(u)
	if err != nil {
		return err
	}
	s.users[u.ID] = data
	return nil
}
