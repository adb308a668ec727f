package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/domain/orders"
)

func sampleEvent() events.OrderEvent {
	return events.OrderEvent{
		Email:     "customer@example.com",
		OrderID:   "8c2f9a10-1b2c-4d3e-9f40-5a6b7c8d9e0f",
		RequestID: "req-123",
		Shipping: orders.Shipping{
			Type:    orders.ShippingUrgent,
			Carrier: orders.CarrierFedex,
		},
		Billing: orders.Billing{
			Payment:    orders.PaymentCreditCard,
			TotalPrice: orders.NewMoneyFromFloat2(15.50),
		},
		ProductsCode: []string{"COD1", "COD2"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	body, err := Encode(events.EventOrderCreated, sampleEvent())
	require.NoError(t, err)

	env, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, events.EventOrderCreated, env.EventType)

	event, err := DecodeOrderEvent(env.Data)
	require.NoError(t, err)
	assert.Equal(t, sampleEvent(), event)
}

func TestEventTypeReadableWithoutPayload(t *testing.T) {
	// subscriber filters must see the discriminator without touching Data
	body, err := Encode(events.EventOrderDeleted, sampleEvent())
	require.NoError(t, err)

	var probe struct {
		EventType string `json:"eventType"`
	}
	require.NoError(t, json.Unmarshal(body, &probe))
	assert.Equal(t, "ORDER_DELETED", probe.EventType)
}

func TestEncodeRejectsUnknownEventType(t *testing.T) {
	_, err := Encode(events.EventType("ORDER_EXPLODED"), sampleEvent())
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeFailsClosed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"unknown event type", `{"eventType":"SOMETHING_ELSE","data":{}}`},
		{"missing event type", `{"data":{}}`},
		{"empty payload", `{"eventType":"ORDER_CREATED"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.body))
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestDecodeOrderEventRejectsBadPayload(t *testing.T) {
	_, err := DecodeOrderEvent(json.RawMessage(`"not an object"`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}
