package billingworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecommerce-orders/internal/domain/events"
	"ecommerce-orders/internal/shared/contracts"
	"ecommerce-orders/internal/shared/logger"
	"ecommerce-orders/internal/shared/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Trigger starts the billing flow for newly created orders. The queue binding
// already narrows deliveries to ORDER_CREATED, so anything else that shows up
// here is dropped.
type Trigger struct {
	logger *logger.Logger
}

// NewTrigger creates a billing Trigger.
func NewTrigger(logger *logger.Logger) *Trigger {
	return &Trigger{logger: logger}
}

// Handle processes one order-created envelope. The message is fully consumed
// before the caller acks it; an error means the charge was not initiated and
// the delivery should come back.
func (trigger *Trigger) Handle(ctx context.Context, body []byte) error {
	env, err := contracts.Decode(body)
	if err != nil {
		return err
	}
	if env.EventType != events.EventOrderCreated {
		return fmt.Errorf("%w: unexpected event type %q on billing queue", contracts.ErrMalformedEnvelope, env.EventType)
	}
	event, err := contracts.DecodeOrderEvent(env.Data)
	if err != nil {
		return err
	}

	trigger.logger.Info(ctx, "billing_triggered", "Billing triggered for new order", map[string]any{
		"order_id":    event.OrderID,
		"email":       event.Email,
		"payment":     event.Billing.Payment,
		"total_price": event.Billing.TotalPrice.ToFloat2(),
		"request_id":  event.RequestID,
	})
	return nil
}

// ConsumeForever continuously (re)creates a channel and starts consuming from the durable `billing_queue`.
func ConsumeForever(ctx context.Context, rmq *rabbitmq.Client, trigger *Trigger, logger *logger.Logger) {
	const (
		prefetch       = 50
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

		ch, err := rmq.NewConsumerChannel(prefetch)
		if err != nil {
			logger.Error(ctx, "rabbitmq_channel_open_failed", "Failed to open consumer channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		backoff = retryBaseDelay

		deliveries, err := ch.Consume(rabbitmq.QueueBilling, consumerName, autoAck, exclusive, noLocal, noWait, nil)
		if err != nil {
			_ = ch.Close()
			logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming billing events", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

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

				handleDelivery(ctx, trigger, logger, d)
			}
		}

		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, retryMaxDelay)
	}
}

// handleDelivery runs the trigger for one delivery and acks or nacks it.
func handleDelivery(ctx context.Context, trigger *Trigger, logger *logger.Logger, d amqp.Delivery) {
	err := trigger.Handle(ctx, d.Body)
	switch {
	case err == nil:
		if err := d.Ack(false); err != nil {
			logger.Error(ctx, "rabbitmq_ack_failed", "Failed to ack billing message", err)
		}

	case errors.Is(err, contracts.ErrMalformedEnvelope):
		logger.Error(ctx, "billing_decode_failed", "Dropping malformed billing message", err)
		_ = d.Ack(false)

	default:
		logger.Error(ctx, "billing_failed", "Billing processing failed, requeueing", err)
		if err := d.Nack(false, true); err != nil {
			logger.Error(ctx, "rabbitmq_nack_failed", "Failed to nack billing message", err)
		}
	}
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
