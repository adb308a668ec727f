package storeworker

import (
	"context"
	"errors"
	"time"

	"ecommerce-orders/internal/shared/contracts"
	"ecommerce-orders/internal/shared/logger"
	"ecommerce-orders/internal/shared/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumeForever continuously (re)creates a channel and starts consuming from the durable `event_store_queue`.
func ConsumeForever(ctx context.Context, rmq *rabbitmq.Client, writer *Writer, logger *logger.Logger) {
	const (
		prefetch       = 50               // limit unacked messages this consumer can hold
		retryBaseDelay = time.Second      // backoff base
		retryMaxDelay  = 30 * time.Second // backoff cap
		consumerName   = ""               // let the server generate a unique consumer tag
		autoAck        = false
		exclusive      = false
		noLocal        = false
		noWait         = false
	)

	backoff := retryBaseDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// acquire a fresh channel with QoS
		ch, err := rmq.NewConsumerChannel(prefetch)
		if err != nil {
			logger.Error(ctx, "rabbitmq_channel_open_failed", "Failed to open consumer channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		// reset backoff on successful channel creation
		backoff = retryBaseDelay

		deliveries, err := ch.Consume(rabbitmq.QueueEventStore, consumerName, autoAck, exclusive, noLocal, noWait, nil)
		if err != nil {
			_ = ch.Close()
			logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming order events", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		// watch for channel close to trigger a re-open
		closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	consumption:
		for {
			select {
			case <-ctx.Done():
				_ = ch.Close()
				break consumption

			case amqpErr := <-closed:
				if amqpErr != nil {
					logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", amqpErr)
				} else {
					logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", errors.New("unknown channel close"))
				}
				break consumption

			case d, ok := <-deliveries:
				if !ok {
					logger.Error(ctx, "rabbitmq_deliveries_closed", "Deliveries channel closed", errors.New("deliveries channel closed"))
					break consumption
				}

				handleDelivery(ctx, writer, logger, d)
			}
		}

		// small delay before attempting to recreate channel (avoid hot loop)
		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, retryMaxDelay)
	}
}

// handleDelivery records one event delivery and acks or nacks it.
// A malformed body cannot be recovered by redelivery, so it is acked and
// dropped. A retryable store failure is nacked back onto the queue.
func handleDelivery(ctx context.Context, writer *Writer, logger *logger.Logger, d amqp.Delivery) {
	err := writer.Record(ctx, d.Body, d.MessageId, publishedAtMs(d))
	switch {
	case err == nil:
		if err := d.Ack(false); err != nil {
			logger.Error(ctx, "rabbitmq_ack_failed", "Failed to ack event message", err)
		}

	case IsRetryable(err):
		logger.Error(ctx, "event_store_write_failed", "Failed to store event record, requeueing", err)
		if err := d.Nack(false, true); err != nil {
			logger.Error(ctx, "rabbitmq_nack_failed", "Failed to nack event message", err)
		}

	default:
		logger.Error(ctx, "event_decode_failed", "Dropping malformed event message", err)
		_ = d.Ack(false)
	}
}

// publishedAtMs reads the publish-time timestamp stamped on the message.
// Older producers may omit the header; the broker timestamp and finally the
// local clock stand in for it.
func publishedAtMs(d amqp.Delivery) int64 {
	if v, ok := d.Headers[contracts.HeaderPublishedAtMs]; ok {
		switch ms := v.(type) {
		case int64:
			return ms
		case int32:
			return int64(ms)
		case float64:
			return int64(ms)
		}
	}
	if !d.Timestamp.IsZero() {
		return d.Timestamp.UnixMilli()
	}
	return time.Now().UnixMilli()
}

// sleepWithContext sleeps for the given duration or returns early if ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential growth capped at max.
func nextBackoff(curr, cap time.Duration) time.Duration {
	n := curr * 2
	if n > cap {
		return cap
	}
	return n
}
