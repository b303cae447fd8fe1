package email

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/letterpress-shop/internal/domain/order"
)

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{99, "$0.99"},
		{15000, "$150.00"},
		{123456, "$1,234.56"},
		{100000000, "$1,000,000.00"},
		{-2500, "-$25.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCents(tt.cents))
	}
}

func TestBuildOrderConfirmationBody(t *testing.T) {
	o := &order.Order{
		OrderNumber: "ORD-2026-AB12CD34",
		Items: []order.Item{
			{Name: "Wedding Suite", Price: 2500, Quantity: 6, Total: 15000},
		},
		Subtotal: 15000,
		Discount: 1000,
		Total:    14000,
	}

	body := BuildOrderConfirmationBody(o)
	assert.Contains(t, body, "ORD-2026-AB12CD34")
	assert.Contains(t, body, "Wedding Suite")
	assert.Contains(t, body, "$150.00")
	assert.Contains(t, body, "Discount: -$10.00")
	assert.Contains(t, body, "$140.00")
}

func TestBuildShippingNotificationBody(t *testing.T) {
	o := &order.Order{
		OrderNumber: "ORD-2026-AB12CD34",
		Shipping: &order.ShippingInfo{
			Carrier:        "UPS",
			TrackingNumber: "1Z999AA10123456784",
		},
	}

	body := BuildShippingNotificationBody(o)
	assert.Contains(t, body, "UPS")
	assert.Contains(t, body, "1Z999AA10123456784")
}
