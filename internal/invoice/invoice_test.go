package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/letterpress-shop/internal/domain/order"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$0.00", FormatPrice(0))
	assert.Equal(t, "$150.00", FormatPrice(15000))
	assert.Equal(t, "$12.05", FormatPrice(1205))
	assert.Equal(t, "-$5.50", FormatPrice(-550))
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer("Letterpress Paper Co.")
	o := &order.Order{
		OrderNumber:   "ORD-2026-AB12CD34",
		Status:        order.StatusConfirmed,
		PaymentStatus: order.PaymentPaid,
		ShippingAddress: order.Address{
			FirstName:  "June",
			LastName:   "Letterman",
			Company:    "Paper & Co.",
			Street1:    "12 Galley Lane",
			City:       "Portland",
			State:      "OR",
			PostalCode: "97201",
			Country:    "US",
		},
		Items: []order.Item{
			{SKU: "WS-50", Name: "Wedding Suite", Price: 2500, Quantity: 6, Total: 15000},
			{Name: "Thank You Flats", Price: 1100, Quantity: 4, Total: 4400},
		},
		Subtotal:  19400,
		Discount:  1000,
		Total:     18400,
		CreatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	data, err := r.Render(o)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}
