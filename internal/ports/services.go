package ports

import (
	"context"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/domain/orders"
)

// CreateOrderCommand is a validated order request: identity, requested product
// ids, and the shipping/payment selections.
type CreateOrderCommand struct {
	Email      string
	ProductIDs []string
	Shipping   orders.Shipping
	Payment    orders.PaymentType
}

// OrderService handles the /orders flow: resolve products → build aggregate →
// persist → publish the event after the write commits.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*orders.Order, error)
	GetOrder(ctx context.Context, email, orderID string) (*orders.Order, error)
	OrdersByEmail(ctx context.Context, email string) ([]orders.Order, error)
	AllOrders(ctx context.Context) ([]orders.Order, error)
	DeleteOrder(ctx context.Context, email, orderID string) (*orders.Order, error)
}

// EventQueryService is the read path over the event store.
type EventQueryService interface {
	EventsByCustomer(ctx context.Context, email string) ([]events.EventView, error)
	EventsByCustomerAndType(ctx context.Context, email string, eventType events.EventType) ([]events.EventView, error)
}

// OutboundMessage is a broker message plus the attributes that travel outside
// its body.
type OutboundMessage struct {
	Body      []byte
	Type      string // routing discriminator, readable without deserializing Body
	MessageID string
	Headers   map[string]any
}

// Publisher hands a message to the fanout router. Delivery is attempted, not
// confirmed beyond hand-off acknowledgment.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg OutboundMessage) error
}

// OrderEventPublisher builds the order-event projection for a snapshot and
// emits it, tagged with the discriminator. Returns the broker message id.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, order *orders.Order, eventType events.EventType, requestID string) (string, error)
}

// Mailer sends the customer-facing order notification.
type Mailer interface {
	SendOrderReceipt(ctx context.Context, to, orderID string, total orders.Money) error
}
