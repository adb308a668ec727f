package ports

import (
	"context"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/domain/orders"
)

// UnitOfWork wraps a function in a DB transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository owns the order store. Get and Delete fail with
// orders.ErrOrderNotFound when the (email, orderId) key is absent.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *orders.Order) error
	GetOrder(ctx context.Context, email, orderID string) (*orders.Order, error)
	OrdersByEmail(ctx context.Context, email string) ([]orders.Order, error)
	AllOrders(ctx context.Context) ([]orders.Order, error)
	// DeleteOrder removes the order and returns the removed snapshot.
	DeleteOrder(ctx context.Context, email, orderID string) (*orders.Order, error)
}

// ProductRepository reads the product catalog. Batch lookup returns only the
// subset found; the caller checks cardinality.
type ProductRepository interface {
	ProductByID(ctx context.Context, id string) (*orders.Product, error)
	ProductsByIDs(ctx context.Context, ids []string) ([]orders.Product, error)
}

// EventRepository is the append-only, time-bounded event store.
type EventRepository interface {
	// CreateEvent persists one record. Writing the same (pk, sk) twice is
	// last-write-wins; redeliveries carry identical content.
	CreateEvent(ctx context.Context, record *events.EventRecord) error
	// EventsByEmail returns records whose sort key carries the order-event
	// prefix, oldest first. Empty slice when nothing matches.
	EventsByEmail(ctx context.Context, email string) ([]events.EventRecord, error)
	// EventsByEmailAndType narrows EventsByEmail by discriminator prefix.
	EventsByEmailAndType(ctx context.Context, email string, eventType events.EventType) ([]events.EventRecord, error)
}
