package orderservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
)

func testCommand() ports.CreateOrderCommand {
	return ports.CreateOrderCommand{
		Email:      "customer@example.com",
		ProductIDs: []string{"p1", "p2"},
		Shipping: orders.Shipping{
			Type:    orders.ShippingEconomic,
			Carrier: orders.CarrierCorreios,
		},
		Payment: orders.PaymentCash,
	}
}

func TestBuildOrderTotalsProductPrices(t *testing.T) {
	products := []orders.Product{
		{ID: "p1", Code: "COD1", Price: orders.NewMoneyFromFloat2(10.00)},
		{ID: "p2", Code: "COD2", Price: orders.NewMoneyFromFloat2(5.50)},
	}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	order, err := BuildOrder(testCommand(), products, now)
	require.NoError(t, err)

	assert.Equal(t, "customer@example.com", order.Email)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, now.UnixMilli(), order.CreatedAt)
	assert.Equal(t, orders.NewMoneyFromFloat2(15.50), order.Billing.TotalPrice)
	assert.Equal(t, orders.PaymentCash, order.Billing.Payment)
	assert.Equal(t, []orders.OrderProduct{
		{Code: "COD1", Price: orders.NewMoneyFromFloat2(10.00)},
		{Code: "COD2", Price: orders.NewMoneyFromFloat2(5.50)},
	}, order.Products)
}

func TestBuildOrderRejectsUnresolvedProducts(t *testing.T) {
	// only one of the two requested ids resolved
	products := []orders.Product{
		{ID: "p1", Code: "COD1", Price: orders.NewMoneyFromFloat2(10.00)},
	}

	order, err := BuildOrder(testCommand(), products, time.Now())
	assert.ErrorIs(t, err, orders.ErrProductsNotFound)
	assert.Nil(t, order)
}

func TestBuildOrderAssignsUniqueIDs(t *testing.T) {
	products := []orders.Product{
		{ID: "p1", Code: "COD1", Price: orders.NewMoneyFromFloat2(1.00)},
		{ID: "p2", Code: "COD2", Price: orders.NewMoneyFromFloat2(2.00)},
	}

	first, err := BuildOrder(testCommand(), products, time.Now())
	require.NoError(t, err)
	second, err := BuildOrder(testCommand(), products, time.Now())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}
