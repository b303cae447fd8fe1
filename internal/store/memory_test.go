package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/letterpress-shop/internal/checkout"
	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/domain/user"
)

func pendingFixture(id, userID, sessionID string) *checkout.PendingCheckout {
	return &checkout.PendingCheckout{
		ID:        id,
		UserID:    userID,
		UserEmail: "buyer@example.com",
		Items: []cart.Item{
			{ProductID: "prod-1", VariantID: "box-25", Name: "Thank You Cards", Price: 1800, Quantity: 10},
		},
		Subtotal:  18000,
		Status:    checkout.StatusPending,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
}

func orderFixture(id, userID, sessionID string) *order.Order {
	return &order.Order{
		ID:          id,
		OrderNumber: order.GenerateOrderNumber(),
		UserID:      userID,
		Status:      order.StatusConfirmed,
		SessionID:   sessionID,
		Subtotal:    18000,
		Total:       18000,
		CreatedAt:   time.Now(),
	}
}

func TestMemoryCartRoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.GetCart(ctx, "user-1")
	assert.ErrorIs(t, err, cart.ErrCartNotFound)

	c := &cart.Cart{OwnerID: "user-1"}
	c.AddItem(cart.Item{ProductID: "p1", VariantID: "v1", Name: "Notecards", Price: 300, Quantity: 2})
	require.NoError(t, s.PutCart(ctx, c))

	got, err := s.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.Subtotal)
	assert.Equal(t, 2, got.ItemCount)

	require.NoError(t, s.DeleteCart(ctx, "user-1"))
	_, err = s.GetCart(ctx, "user-1")
	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

func TestMemoryUpdateCartRequiresExisting(t *testing.T) {
	s := NewMemory()
	c := &cart.Cart{OwnerID: "ghost"}

	err := s.UpdateCart(context.Background(), c)
	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

func TestMemoryCreateCheckoutRejectsDuplicateID(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	pc := pendingFixture("checkout_u1_1700000000000", "u1", "")
	require.NoError(t, s.CreateCheckout(ctx, pc))

	dup := pendingFixture("checkout_u1_1700000000000", "u1", "")
	dup.Subtotal = 99999
	err := s.CreateCheckout(ctx, dup)
	assert.ErrorIs(t, err, checkout.ErrCheckoutExists)

	// The original staging write is untouched.
	got, err := s.GetCheckout(ctx, pc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(18000), got.Subtotal)
}

func TestMemoryMaterialize(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	pc := pendingFixture("checkout_u1_1700000000000", "u1", "cs_test_1")
	require.NoError(t, s.CreateCheckout(ctx, pc))

	o := orderFixture("order-1", "u1", "cs_test_1")
	require.NoError(t, s.Materialize(ctx, o, pc.ID))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", got.SessionID)

	completed, err := s.GetCheckout(ctx, pc.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusCompleted, completed.Status)
	assert.Equal(t, "order-1", completed.OrderID)
	require.NotNil(t, completed.CompletedAt)
}

func TestMemoryMaterializeRejectsSecondDelivery(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	pc := pendingFixture("checkout_u1_1700000000000", "u1", "cs_test_1")
	require.NoError(t, s.CreateCheckout(ctx, pc))
	require.NoError(t, s.Materialize(ctx, orderFixture("order-1", "u1", "cs_test_1"), pc.ID))

	// A redelivered event builds a fresh order id but cites the same session
	// and checkout. Both guards must hold.
	err := s.Materialize(ctx, orderFixture("order-2", "u1", "cs_test_1"), pc.ID)
	assert.ErrorIs(t, err, checkout.ErrAlreadyMaterialized)

	_, err = s.GetOrder(ctx, "order-2")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestMemoryMaterializeRejectsReusedSessionAcrossCheckouts(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	a := pendingFixture("checkout_u1_1", "u1", "cs_shared")
	b := pendingFixture("checkout_u1_2", "u1", "cs_shared")
	require.NoError(t, s.CreateCheckout(ctx, a))
	require.NoError(t, s.CreateCheckout(ctx, b))

	require.NoError(t, s.Materialize(ctx, orderFixture("order-a", "u1", "cs_shared"), a.ID))
	err := s.Materialize(ctx, orderFixture("order-b", "u1", "cs_shared"), b.ID)
	assert.ErrorIs(t, err, checkout.ErrAlreadyMaterialized)
}

func TestMemoryMaterializeConcurrent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	pc := pendingFixture("checkout_u1_1", "u1", "cs_race")
	require.NoError(t, s.CreateCheckout(ctx, pc))

	const deliveries = 8
	var wg sync.WaitGroup
	results := make(chan error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			o := orderFixture(order.GenerateOrderNumber(), "u1", "cs_race")
			results <- s.Materialize(ctx, o, pc.ID)
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, checkout.ErrAlreadyMaterialized)
		}
	}
	assert.Equal(t, 1, wins, "exactly one delivery materializes the order")
}

func TestMemoryGetOrderBySessionRequiresBothKeys(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	pc := pendingFixture("checkout_u1_1", "u1", "cs_1")
	require.NoError(t, s.CreateCheckout(ctx, pc))
	require.NoError(t, s.Materialize(ctx, orderFixture("order-1", "u1", "cs_1"), pc.ID))

	got, err := s.GetOrderBySession(ctx, "u1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", got.ID)

	// Right session, wrong owner: not visible.
	_, err = s.GetOrderBySession(ctx, "u2", "cs_1")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	// Right owner, wrong session: not visible.
	_, err = s.GetOrderBySession(ctx, "u1", "cs_other")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestMemoryPurgeStaleCheckouts(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	old := pendingFixture("checkout_u1_1", "u1", "")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	fresh := pendingFixture("checkout_u1_2", "u1", "")
	done := pendingFixture("checkout_u2_1", "u2", "cs_done")
	done.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.CreateCheckout(ctx, old))
	require.NoError(t, s.CreateCheckout(ctx, fresh))
	require.NoError(t, s.CreateCheckout(ctx, done))
	require.NoError(t, s.Materialize(ctx, orderFixture("order-1", "u2", "cs_done"), done.ID))

	purged, err := s.PurgeStaleCheckouts(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	// Completed records survive any cutoff; they are the audit trail.
	_, err = s.GetCheckout(ctx, done.ID)
	assert.NoError(t, err)
	_, err = s.GetCheckout(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = s.GetCheckout(ctx, old.ID)
	assert.ErrorIs(t, err, checkout.ErrCheckoutNotFound)
}

func TestMemoryUserPasswordHashSurvivesRoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	u := &user.User{
		ID:           "u1",
		Email:        "press@example.com",
		Name:         "Press Owner",
		Role:         user.RoleCustomer,
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		Active:       true,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByEmail(ctx, "press@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
}
