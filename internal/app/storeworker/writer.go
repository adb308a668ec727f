package storeworker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/contracts"
	"ecommerce-orders/internal/shared/logger"
)

// Writer persists every envelope it receives as an append-only event record.
// It subscribes without a filter; whatever reaches its queue gets stored.
type Writer struct {
	repo   ports.EventRepository
	ttl    time.Duration
	logger *logger.Logger
}

// NewWriter creates a Writer with the record time-to-live.
func NewWriter(repo ports.EventRepository, ttl time.Duration, logger *logger.Logger) *Writer {
	return &Writer{repo: repo, ttl: ttl, logger: logger}
}

// Record decodes one envelope body and writes its event record.
//
// publishedAt (epoch ms, fixed at publish time) keys the record, so a broker
// redelivery rewrites the same (pk, sk) instead of creating a new one. A
// malformed body is a validation error and must not be retried; a store
// failure comes back wrapped Retryable so the delivery loop requeues it.
func (writer *Writer) Record(ctx context.Context, body []byte, messageID string, publishedAt int64) error {
	env, err := contracts.Decode(body)
	if err != nil {
		return err
	}
	event, err := contracts.DecodeOrderEvent(env.Data)
	if err != nil {
		return err
	}

	record := events.EventRecord{
		PK:        "#order_" + event.OrderID,
		SK:        string(env.EventType) + "#" + strconv.FormatInt(publishedAt, 10),
		Email:     event.Email,
		CreatedAt: publishedAt,
		RequestID: event.RequestID,
		EventType: env.EventType,
		TTL:       publishedAt/1000 + int64(writer.ttl.Seconds()),
		Info: events.EventRecordInfo{
			OrderID:      event.OrderID,
			ProductsCode: event.ProductsCode,
			MessageID:    messageID,
		},
	}

	if err := writer.repo.CreateEvent(ctx, &record); err != nil {
		return Retryable(fmt.Errorf("store event record %s/%s: %w", record.PK, record.SK, err))
	}

	writer.logger.Debug(ctx, "event_recorded", "Event record stored", map[string]any{
		"pk":         record.PK,
		"sk":         record.SK,
		"message_id": messageID,
	})
	return nil
}
