package orderservice

import (
	"time"

	"github.com/google/uuid"

	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
)

// BuildOrder assembles an immutable Order from a validated command plus the
// resolved product records. It persists nothing; that is the caller's job.
//
// Every requested product id must have resolved: if the counts differ, no
// order is built and orders.ErrProductsNotFound is returned (the caller must
// not publish an event in that case).
func BuildOrder(cmd ports.CreateOrderCommand, products []orders.Product, now time.Time) (*orders.Order, error) {
	if len(products) != len(cmd.ProductIDs) {
		return nil, orders.ErrProductsNotFound
	}

	// cents arithmetic: summation order is irrelevant, nothing to round
	var total orders.Money
	items := make([]orders.OrderProduct, len(products))
	for i, p := range products {
		total += p.Price
		items[i] = orders.OrderProduct{Code: p.Code, Price: p.Price}
	}

	return &orders.Order{
		Email:     cmd.Email,
		ID:        uuid.NewString(),
		CreatedAt: now.UnixMilli(),
		Shipping:  cmd.Shipping,
		Billing: orders.Billing{
			Payment:    cmd.Payment,
			TotalPrice: total,
		},
		Products: items,
	}, nil
}
