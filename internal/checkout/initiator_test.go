package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/payment"
)

const testMinOrder = 15000

func newTestInitiator(store *fakeStore, provider *fakeProvider) *Initiator {
	return NewInitiator(store, provider, testMinOrder, "https://shop.test/success", "https://shop.test/cart")
}

func validRequest() Request {
	return Request{
		UserID:          "user-1",
		UserEmail:       "buyer@example.com",
		Items:           testItems(),
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
		Subtotal:        testSubtotal(), // 2500*6 + 1100*4 = 19400
	}
}

func TestInitiateCreatesSession(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{session: &payment.Session{ID: "cs_test_123", URL: "https://pay.test/cs_test_123"}}

	res, err := newTestInitiator(store, provider).Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "cs_test_123", res.SessionID)
	assert.Equal(t, "https://pay.test/cs_test_123", res.URL)
	assert.True(t, strings.HasPrefix(res.CheckoutID, "checkout_user-1_"))

	pc, ok := store.checkouts[res.CheckoutID]
	require.True(t, ok, "pending checkout staged before session creation")
	assert.Equal(t, StatusPending, pc.Status)
	assert.Equal(t, "cs_test_123", pc.SessionID)
	assert.Len(t, pc.Items, 2)
	assert.Equal(t, testSubtotal(), pc.Subtotal)
}

func TestInitiateSessionCarriesOnlyReferenceIDs(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{session: &payment.Session{ID: "cs_1", URL: "https://pay.test/cs_1"}}

	res, err := newTestInitiator(store, provider).Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	// The session request identifies the checkout by reference only; the
	// bulky detail stays in the pending record.
	assert.Equal(t, res.CheckoutID, provider.lastReq.CheckoutID)
	assert.Equal(t, "user-1", provider.lastReq.UserID)
	assert.Len(t, provider.lastReq.LineItems, 2)
	assert.Equal(t, int64(2500), provider.lastReq.LineItems[0].UnitAmount)
	assert.Equal(t, 6, provider.lastReq.LineItems[0].Quantity)
}

func TestInitiateValidationBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr error
	}{
		{
			name:    "empty cart",
			mutate:  func(r *Request) { r.Items = nil },
			wantErr: ErrEmptyCart,
		},
		{
			name:    "missing shipping address",
			mutate:  func(r *Request) { r.ShippingAddress = order.Address{} },
			wantErr: ErrMissingAddress,
		},
		{
			name:    "missing billing address",
			mutate:  func(r *Request) { r.BillingAddress = order.Address{} },
			wantErr: ErrMissingAddress,
		},
		{
			name: "below minimum order",
			mutate: func(r *Request) {
				r.Items = []cart.Item{
					{ProductID: "p1", VariantID: "v1", Name: "Flat Cards", Price: 300, Quantity: 6},
					{ProductID: "p2", VariantID: "v2", Name: "Folded Cards", Price: 1100, Quantity: 4},
				}
				r.Subtotal = 6200
			},
			wantErr: ErrBelowMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			provider := &fakeProvider{session: &payment.Session{ID: "cs_1"}}
			req := validRequest()
			tt.mutate(&req)

			_, err := newTestInitiator(store, provider).Initiate(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, store.checkouts, "no pending record on validation failure")
			assert.Zero(t, provider.createCall, "no session requested on validation failure")
		})
	}
}

func TestInitiateExactMinimumPasses(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{session: &payment.Session{ID: "cs_1", URL: "u"}}
	req := validRequest()
	req.Items = []cart.Item{{ProductID: "p1", VariantID: "v1", Name: "Cards", Price: 15000, Quantity: 1}}
	req.Subtotal = testMinOrder

	_, err := newTestInitiator(store, provider).Initiate(context.Background(), req)
	assert.NoError(t, err)
}

func TestInitiateSessionFailureLeavesOrphanedPending(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{createErr: payment.ErrSessionCreate}

	_, err := newTestInitiator(store, provider).Initiate(context.Background(), validRequest())
	assert.ErrorIs(t, err, payment.ErrSessionCreate)

	// The staged record stays behind without a session id. It can never be
	// billed and no order will cite it.
	require.Len(t, store.checkouts, 1)
	for _, pc := range store.checkouts {
		assert.Equal(t, StatusPending, pc.Status)
		assert.Empty(t, pc.SessionID)
	}
}

func TestInitiateStagingFailure(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("backend unavailable")
	provider := &fakeProvider{session: &payment.Session{ID: "cs_1"}}

	_, err := newTestInitiator(store, provider).Initiate(context.Background(), validRequest())
	assert.Error(t, err)
	assert.Zero(t, provider.createCall, "no session requested when staging fails")
}
