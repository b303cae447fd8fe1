package order

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusDelivered, false},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusRefunded, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusRefunded, StatusConfirmed, false},
	}

	for _, tc := range cases {
		o := &Order{Status: tc.from}
		assert.Equal(t, tc.allowed, o.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionError(t *testing.T) {
	cancelled := &Order{Status: StatusCancelled}
	assert.ErrorIs(t, cancelled.transitionError(StatusConfirmed), ErrOrderCancelled)

	delivered := &Order{Status: StatusDelivered}
	assert.ErrorIs(t, delivered.transitionError(StatusCancelled), ErrOrderDelivered)

	shipped := &Order{Status: StatusShipped}
	assert.ErrorIs(t, shipped.transitionError(StatusCancelled), ErrInvalidTransition)
}

func TestVerifyTotal(t *testing.T) {
	o := &Order{Subtotal: 18000, ShippingCost: 0, Tax: 0, Discount: 500, Total: 17500}
	assert.NoError(t, o.VerifyTotal())

	o.Total = 18000
	assert.ErrorIs(t, o.VerifyTotal(), ErrTotalMismatch)
}

func TestGenerateOrderNumber_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{4}-[A-Z0-9]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n := GenerateOrderNumber()
		require.Regexp(t, pattern, n)
		seen[n] = true
	}
	// Advisory display text, but collisions within one run would be alarming.
	assert.Greater(t, len(seen), 45)
}

func TestAddressEmpty(t *testing.T) {
	assert.True(t, Address{}.Empty())
	assert.False(t, Address{Street1: "12 Foundry Row", City: "Portland", PostalCode: "97201"}.Empty())
}

func TestItemTotal(t *testing.T) {
	item := Item{Price: 1100, Quantity: 4, Total: 4400}
	assert.Equal(t, int64(4400), item.Total)
}
