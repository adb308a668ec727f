package notificationworker

import (
	"context"
	"errors"
	"time"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/contracts"
	"ecommerce-orders/internal/shared/logger"
	"ecommerce-orders/internal/shared/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// headerAttempt counts delivery attempts across republishes. A plain broker
// requeue does not increment anything, so failed messages go back through the
// queue as fresh publishes carrying this header.
const headerAttempt = "x-attempt"

// Consumer drains `notifications_queue` in small batches and sends one receipt
// email per message. Messages in a batch fail independently; a message that
// keeps failing is dead-lettered after maxAttempts tries.
type Consumer struct {
	mailer      ports.Mailer
	publisher   ports.Publisher
	batchSize   int
	batchWait   time.Duration
	maxAttempts int
	logger      *logger.Logger
}

// NewConsumer creates a notification Consumer.
func NewConsumer(mailer ports.Mailer, publisher ports.Publisher, batchSize int, batchWait time.Duration, maxAttempts int, logger *logger.Logger) *Consumer {
	return &Consumer{
		mailer:      mailer,
		publisher:   publisher,
		batchSize:   batchSize,
		batchWait:   batchWait,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// ConsumeForever continuously (re)creates a channel and starts consuming from the durable `notifications_queue`.
func (consumer *Consumer) ConsumeForever(ctx context.Context, rmq *rabbitmq.Client) {
	const (
		retryBaseDelay = time.Second
		retryMaxDelay  = 30 * time.Second
		consumerName   = ""
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

		// prefetch matches the batch size so the broker never hands us more
		// than one unflushed batch
		ch, err := rmq.NewConsumerChannel(consumer.batchSize)
		if err != nil {
			consumer.logger.Error(ctx, "rabbitmq_channel_open_failed", "Failed to open consumer channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		backoff = retryBaseDelay

		deliveries, err := ch.Consume(rabbitmq.QueueNotifications, consumerName, autoAck, exclusive, noLocal, noWait, nil)
		if err != nil {
			_ = ch.Close()
			consumer.logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming notifications", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		closed := ch.NotifyClose(make(chan *amqp.Error, 1))

		consumer.runBatches(ctx, deliveries, closed)
		_ = ch.Close()

		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, retryMaxDelay)
	}
}

// runBatches accumulates deliveries and flushes a batch when it is full or the
// wait window elapses, whichever comes first. It returns when the context is
// cancelled or the delivery stream closes.
func (consumer *Consumer) runBatches(ctx context.Context, deliveries <-chan amqp.Delivery, closed <-chan *amqp.Error) {
	batch := make([]amqp.Delivery, 0, consumer.batchSize)
	timer := time.NewTimer(consumer.batchWait)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		consumer.HandleBatch(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case amqpErr := <-closed:
			if amqpErr != nil {
				consumer.logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", amqpErr)
			} else {
				consumer.logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", errors.New("unknown channel close"))
			}
			flush()
			return

		case <-timer.C:
			flush()
			timer.Reset(consumer.batchWait)

		case d, ok := <-deliveries:
			if !ok {
				consumer.logger.Error(ctx, "rabbitmq_deliveries_closed", "Deliveries channel closed", errors.New("deliveries channel closed"))
				flush()
				return
			}

			batch = append(batch, d)
			if len(batch) >= consumer.batchSize {
				flush()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(consumer.batchWait)
			}
		}
	}
}

// HandleBatch processes each delivery in the batch independently: one failing
// message never holds back or fails its neighbours.
func (consumer *Consumer) HandleBatch(ctx context.Context, batch []amqp.Delivery) {
	for _, d := range batch {
		consumer.handleDelivery(ctx, d)
	}
}

// handleDelivery sends one receipt email and acks, or routes the message back
// through the retry path on failure.
func (consumer *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	env, err := contracts.Decode(d.Body)
	var event events.OrderEvent
	if err == nil {
		event, err = contracts.DecodeOrderEvent(env.Data)
	}
	if err != nil {
		// redelivery cannot fix a malformed body
		consumer.logger.Error(ctx, "notification_decode_failed", "Dropping malformed notification message", err)
		_ = d.Ack(false)
		return
	}

	if err := consumer.mailer.SendOrderReceipt(ctx, event.Email, event.OrderID, event.Billing.TotalPrice); err != nil {
		consumer.retryOrDeadLetter(ctx, d, err)
		return
	}

	consumer.logger.Info(ctx, "notification_sent", "Order receipt sent", map[string]any{
		"order_id": event.OrderID,
		"email":    event.Email,
	})
	if err := d.Ack(false); err != nil {
		consumer.logger.Error(ctx, "rabbitmq_ack_failed", "Failed to ack notification message", err)
	}
}

// retryOrDeadLetter republishes a failed message with an incremented attempt
// counter, or nacks it to the dead-letter exchange once attempts run out.
func (consumer *Consumer) retryOrDeadLetter(ctx context.Context, d amqp.Delivery, cause error) {
	attempt := attemptOf(d)

	if attempt >= consumer.maxAttempts {
		consumer.logger.Error(ctx, "notification_dead_lettered", "Notification failed on final attempt, dead-lettering", cause)
		if err := d.Nack(false, false); err != nil {
			consumer.logger.Error(ctx, "rabbitmq_nack_failed", "Failed to nack notification message", err)
		}
		return
	}

	headers := map[string]any{headerAttempt: int32(attempt + 1)}
	for k, v := range d.Headers {
		if k != headerAttempt {
			headers[k] = v
		}
	}

	// default exchange routes straight back to the queue by name
	err := consumer.publisher.Publish(ctx, "", rabbitmq.QueueNotifications, ports.OutboundMessage{
		Body:      d.Body,
		Type:      d.Type,
		MessageID: d.MessageId,
		Headers:   headers,
	})
	if err != nil {
		// could not republish; requeue the original so the message is not lost
		consumer.logger.Error(ctx, "notification_retry_failed", "Failed to republish notification for retry", err)
		if err := d.Nack(false, true); err != nil {
			consumer.logger.Error(ctx, "rabbitmq_nack_failed", "Failed to nack notification message", err)
		}
		return
	}

	consumer.logger.Debug(ctx, "notification_retried", "Notification republished for retry", map[string]any{
		"message_id": d.MessageId,
		"attempt":    attempt + 1,
		"cause":      cause.Error(),
	})
	if err := d.Ack(false); err != nil {
		consumer.logger.Error(ctx, "rabbitmq_ack_failed", "Failed to ack notification message", err)
	}
}

// attemptOf reads the attempt counter from the delivery headers, treating a
// missing header as the first attempt.
func attemptOf(d amqp.Delivery) int {
	if v, ok := d.Headers[headerAttempt]; ok {
		switch n := v.(type) {
		case int32:
			return int(n)
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 1
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
