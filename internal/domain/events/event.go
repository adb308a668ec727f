package events

import (
	"ecommerce-orders/internal/domain/orders"
)

// EventType is the closed-set discriminator used to route order events.
type EventType string

const (
	EventOrderCreated EventType = "ORDER_CREATED"
	EventOrderDeleted EventType = "ORDER_DELETED"
	EventOrderUpdated EventType = "ORDER_UPDATED"

	// EventSortKeyPrefix marks every order-event sort key; other record shapes
	// sharing the customer index never start with it.
	EventSortKeyPrefix = "ORDER_"
)

// ValidEventType checks the discriminator against the closed set. Decoders fail
// closed on anything else.
func ValidEventType(t EventType) bool {
	switch t {
	case EventOrderCreated, EventOrderDeleted, EventOrderUpdated:
		return true
	default:
		return false
	}
}

// OrderEvent is the payload published for an order mutation. It is a projection
// of the Order snapshot: product codes only, no line-item prices.
type OrderEvent struct {
	Email        string          `json:"email"`
	OrderID      string          `json:"orderId"`
	RequestID    string          `json:"requestId"`
	Shipping     orders.Shipping `json:"shipping"`
	Billing      orders.Billing  `json:"billing"`
	ProductsCode []string        `json:"productsCode"`
}

// EventRecordInfo is the nested info block stored with every event record.
type EventRecordInfo struct {
	OrderID      string   `json:"orderId"`
	ProductsCode []string `json:"productsCode"`
	MessageID    string   `json:"messageId"`
}

// EventRecord is one append-only row in the event store.
//
// PK is "#order_{orderId}" and SK is "{eventType}#{timestampMs}". The timestamp
// is fixed at publish time, so redelivering the same message rewrites the same
// key instead of creating a second visible record.
type EventRecord struct {
	PK        string          `json:"pk"`
	SK        string          `json:"sk"`
	Email     string          `json:"email"`
	CreatedAt int64           `json:"created_at"` // epoch milliseconds
	RequestID string          `json:"requestId"`
	EventType EventType       `json:"eventType"`
	TTL       int64           `json:"ttl"` // epoch seconds when the record expires
	Info      EventRecordInfo `json:"info"`
}

// EventView is the projection returned to query callers: internal keys stripped.
type EventView struct {
	Email        string    `json:"email"`
	CreatedAt    int64     `json:"created_at"`
	EventType    EventType `json:"eventType"`
	RequestID    string    `json:"requestId"`
	OrderID      string    `json:"orderId"`
	ProductCodes []string  `json:"productCodes"`
}

// View strips the storage keys from a record.
func (r *EventRecord) View() EventView {
	return EventView{
		Email:        r.Email,
		CreatedAt:    r.CreatedAt,
		EventType:    r.EventType,
		RequestID:    r.RequestID,
		OrderID:      r.Info.OrderID,
		ProductCodes: r.Info.ProductsCode,
	}
}
