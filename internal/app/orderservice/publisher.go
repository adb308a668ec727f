package orderservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/contracts"
	"ecommerce-orders/internal/shared/logger"
)

// EventPublisher emits order events to the fanout exchange. It performs no
// retry; redelivery is the broker's and the queue consumers' responsibility.
type EventPublisher struct {
	pub      ports.Publisher
	exchange string
	logger   *logger.Logger
}

var _ ports.OrderEventPublisher = (*EventPublisher)(nil)

// NewEventPublisher wires an EventPublisher to the given exchange.
func NewEventPublisher(pub ports.Publisher, exchange string, logger *logger.Logger) *EventPublisher {
	return &EventPublisher{pub: pub, exchange: exchange, logger: logger}
}

// PublishOrderEvent projects the order snapshot into an OrderEvent (product
// codes only, no line-item prices), wraps it in an envelope tagged with the
// discriminator, and hands it to the fanout router.
func (publisher *EventPublisher) PublishOrderEvent(
	ctx context.Context,
	order *orders.Order,
	eventType events.EventType,
	requestID string,
) (string, error) {
	event := events.OrderEvent{
		Email:        order.Email,
		OrderID:      order.ID,
		RequestID:    requestID,
		Shipping:     order.Shipping,
		Billing:      order.Billing,
		ProductsCode: order.ProductCodes(),
	}

	body, err := contracts.Encode(eventType, event)
	if err != nil {
		return "", err
	}

	msg := ports.OutboundMessage{
		Body:      body,
		Type:      string(eventType),
		MessageID: uuid.NewString(),
		Headers: map[string]any{
			// fixed at publish time so consumers key records deterministically
			contracts.HeaderPublishedAtMs: time.Now().UnixMilli(),
		},
	}

	// routing key = discriminator; subscriber bindings filter on it
	if err := publisher.pub.Publish(ctx, publisher.exchange, string(eventType), msg); err != nil {
		return "", fmt.Errorf("publish %s for order %s: %w", eventType, order.ID, err)
	}

	publisher.logger.Debug(ctx, "order_event_published", "Order event handed to fanout", map[string]any{
		"event_type": string(eventType),
		"order_id":   order.ID,
		"message_id": msg.MessageID,
	})

	return msg.MessageID, nil
}
