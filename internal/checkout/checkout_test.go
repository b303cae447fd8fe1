package checkout

import (
	"context"
	"errors"

	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/payment"
)

// fakeStore implements CheckoutStore, ReconcilerStore and PollerStore with
// per-method error injection.
type fakeStore struct {
	checkouts map[string]*PendingCheckout
	orders    map[string]*order.Order // keyed by session id
	cleared   []string

	createErr      error
	setSessionErr  error
	materializeErr error
	deleteCartErr  error
	lookupErr      error

	// visibleAfter hides orders from GetOrderBySession for the first N calls.
	visibleAfter int
	lookupCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		checkouts: make(map[string]*PendingCheckout),
		orders:    make(map[string]*order.Order),
	}
}

func (f *fakeStore) CreateCheckout(ctx context.Context, pc *PendingCheckout) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.checkouts[pc.ID] = pc
	return nil
}

func (f *fakeStore) SetCheckoutSession(ctx context.Context, checkoutID, sessionID string) error {
	if f.setSessionErr != nil {
		return f.setSessionErr
	}
	pc, ok := f.checkouts[checkoutID]
	if !ok {
		return ErrCheckoutNotFound
	}
	pc.SessionID = sessionID
	return nil
}

func (f *fakeStore) GetCheckout(ctx context.Context, checkoutID string) (*PendingCheckout, error) {
	pc, ok := f.checkouts[checkoutID]
	if !ok {
		return nil, ErrCheckoutNotFound
	}
	cp := *pc
	return &cp, nil
}

func (f *fakeStore) Materialize(ctx context.Context, o *order.Order, checkoutID string) error {
	if f.materializeErr != nil {
		return f.materializeErr
	}
	if _, claimed := f.orders[o.SessionID]; claimed {
		return ErrAlreadyMaterialized
	}
	pc, ok := f.checkouts[checkoutID]
	if !ok {
		return ErrCheckoutNotFound
	}
	if pc.Status == StatusCompleted {
		return ErrAlreadyMaterialized
	}
	f.orders[o.SessionID] = o
	pc.Status = StatusCompleted
	pc.OrderID = o.ID
	return nil
}

func (f *fakeStore) DeleteCart(ctx context.Context, ownerID string) error {
	if f.deleteCartErr != nil {
		return f.deleteCartErr
	}
	f.cleared = append(f.cleared, ownerID)
	return nil
}

func (f *fakeStore) GetOrderBySession(ctx context.Context, userID, sessionID string) (*order.Order, error) {
	f.lookupCalls++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.lookupCalls <= f.visibleAfter {
		return nil, order.ErrOrderNotFound
	}
	o, ok := f.orders[sessionID]
	if !ok || o.UserID != userID {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

// fakeProvider implements payment.Provider.
type fakeProvider struct {
	session    *payment.Session
	createErr  error
	lastReq    payment.SessionRequest
	createCall int
}

func (f *fakeProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.createCall++
	f.lastReq = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func (f *fakeProvider) VerifyEvent(payload []byte, signature string) (*payment.Event, error) {
	return nil, errors.New("not used")
}

// fakePublisher implements Publisher.
type fakePublisher struct {
	published  []*order.Order
	publishErr error
}

func (f *fakePublisher) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, o)
	return nil
}

func testAddress() order.Address {
	return order.Address{
		FirstName:  "June",
		LastName:   "Letterman",
		Street1:    "12 Galley Lane",
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}
}

func testItems() []cart.Item {
	return []cart.Item{
		{ProductID: "prod-1", VariantID: "box-50", Name: "Wedding Suite", SKU: "WS-50", Price: 2500, Quantity: 6},
		{ProductID: "prod-2", VariantID: "box-10", Name: "Thank You Flats", SKU: "TY-10", Price: 1100, Quantity: 4},
	}
}

func testSubtotal() int64 {
	var sum int64
	for _, it := range testItems() {
		sum += it.Total()
	}
	return sum
}
