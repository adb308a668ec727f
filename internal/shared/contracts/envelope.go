// Package contracts defines the wire format shared by the order services:
// the routing envelope and the attributes that travel outside its body.
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"

	"ecommerce-orders/internal/domain/events"
)

// ErrMalformedEnvelope is returned for any body that cannot be decoded into a
// well-formed envelope. Callers must not partially trust a failed decode.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// HeaderPublishedAtMs carries the publish-time timestamp (epoch ms) as a
// message header, so consumers key event records deterministically and
// redeliveries rewrite the same key.
const HeaderPublishedAtMs = "published_at_ms"

// Envelope wraps a serialized domain event with its routing discriminator.
// EventType is duplicated outside the body (routing key and message Type
// attribute) so subscriber filters never deserialize the payload.
type Envelope struct {
	EventType events.EventType `json:"eventType"`
	Data      json.RawMessage  `json:"data"`
}

// Encode serializes an order event and wraps it in an envelope body.
func Encode(eventType events.EventType, event events.OrderEvent) ([]byte, error) {
	if !events.ValidEventType(eventType) {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformedEnvelope, eventType)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}

	body, err := json.Marshal(Envelope{EventType: eventType, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return body, nil
}

// Decode parses an envelope body. It fails closed: unknown event types and
// empty payloads are malformed, not guessed at.
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if !events.ValidEventType(env.EventType) {
		return Envelope{}, fmt.Errorf("%w: unknown event type %q", ErrMalformedEnvelope, env.EventType)
	}
	if len(env.Data) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty payload", ErrMalformedEnvelope)
	}
	return env, nil
}

// DecodeOrderEvent parses the nested payload of an already-decoded envelope.
func DecodeOrderEvent(data json.RawMessage) (events.OrderEvent, error) {
	var event events.OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return events.OrderEvent{}, fmt.Errorf("%w: bad order event payload: %v", ErrMalformedEnvelope, err)
	}
	return event, nil
}
