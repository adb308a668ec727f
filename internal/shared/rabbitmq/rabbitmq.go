package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ecommerce-orders/internal/ports"
	"ecommerce-orders/internal/shared/config"
	"ecommerce-orders/internal/shared/logger"
)

// Topology names. The order_events exchange fans every published envelope out
// to the bound queues; each queue's binding key is its discriminator filter.
const (
	ExchangeOrderEvents = "order_events"
	ExchangeDLX         = "order_events_dlx"

	QueueEventStore    = "event_store_queue"
	QueueBilling       = "billing_queue"
	QueueNotifications = "notifications_queue"
	QueueNotifyDLQ     = "notifications_dlq"

	// dead letters from the notification path are re-keyed so only its DLQ sees them
	notifyDeadKey = "notifications.dead"
)

// Client is a resilient RabbitMQ connector with auto-reconnect and topology setup.
type Client struct {
	url          string
	logger       *logger.Logger
	logCtx       context.Context // carries context with request_id across reconnects
	dlqRetention time.Duration

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	closed    chan struct{}
	reconnect chan struct{}
}

// MQPublisher adapts the Client to the ports.Publisher interface.
type MQPublisher struct {
	Client *Client
}

var _ ports.Publisher = (*MQPublisher)(nil)

// Publish sends a message to the specified exchange and routing key.
func (p *MQPublisher) Publish(ctx context.Context, exchange, routingKey string, msg ports.OutboundMessage) error {
	return p.Client.PublishMessage(ctx, exchange, routingKey, msg)
}

// ConnectRabbitMQ establishes connection and starts a background watcher that reconnects on failures.
func ConnectRabbitMQ(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)

	client := &Client{
		url:          url,
		logger:       log,
		logCtx:       context.WithoutCancel(ctx), // avoid ctx cancel on reconnects
		dlqRetention: time.Duration(cfg.Notifications.DLQRetentionHours) * time.Hour,
		closed:       make(chan struct{}),
		reconnect:    make(chan struct{}, 1),
	}

	// initial connect (single attempt; further retries happen in the watcher)
	if err := client.connectOnce(ctx); err != nil {
		return nil, err
	}

	// background watcher for reconnects
	go client.watch()

	return client, nil
}

// NewConsumerChannel returns a fresh channel with prefetch (QoS) applied.
func (client *Client) NewConsumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	// quick fail if no connection
	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			return nil, err
		}
	}

	return ch, nil
}

// PublishMessage publishes a persistent JSON message carrying the routing
// attributes of msg (Type, MessageId, headers).
func (client *Client) PublishMessage(ctx context.Context, exchange, routingKey string, msg ports.OutboundMessage) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(pubCtx,
		exchange, routingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         msg.Type,
			MessageId:    msg.MessageID,
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table(msg.Headers),
			Body:         msg.Body,
		})
}

// Ping checks connectivity by dialing TCP to the RabbitMQ.
func (client *Client) Ping(timeout time.Duration) error {
	client.mu.RLock()
	conn := client.conn
	url := client.url
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: no connection")
	}

	// parse URL to extract host:port for TCP dial
	u, err := amqp.ParseURI(url)
	if err != nil {
		return fmt.Errorf("rabbitmq: bad url: %w", err)
	}
	addr := net.JoinHostPort(u.Host, fmt.Sprintf("%d", u.Port))

	d := net.Dialer{Timeout: timeout}
	c, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}

	_ = c.Close()
	return nil
}

// Close gracefully stops the watcher and closes AMQP resources.
func (client *Client) Close() {
	select {
	case <-client.closed:
		// already closed
	default:
		close(client.closed)
	}

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()
}

// --- internals ---

// connectOnce tries to connect and set up topology once.
func (client *Client) connectOnce(ctx context.Context) error {
	start := time.Now().UTC()

	// use DialConfig to set heartbeat and TCP dial timeout
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	// declare/ensure topology idempotently
	if err := declareTopology(ch, client.dlqRetention); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	client.mu.Lock()
	client.conn = conn
	if client.pubChan != nil {
		_ = client.pubChan.Close()
	}
	client.pubChan = ch
	client.mu.Unlock()

	// watch for connection/channel closures and trigger reconnect
	go func() {
		// Either the connection or the publisher channel closing should trigger reconnect
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-client.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}

		// Try to enqueue a reconnect signal
		select {
		case client.reconnect <- struct{}{}:
		default:
			// already enqueued; no-op
		}
	}()

	client.logger.Info(ctx, "rabbitmq_connected",
		fmt.Sprintf("Connected to RabbitMQ; exchange: %s", ExchangeOrderEvents),
		map[string]any{"duration_ms": time.Since(start).Milliseconds()})

	return nil
}

// watch runs in background and attempts reconnects with exponential backoff.
func (client *Client) watch() {
	backoff := time.Second
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
			// attempt reconnect until success or Close()
			for {
				select {
				case <-client.closed:
					return
				default:
				}

				ctx, cancel := context.WithTimeout(client.logCtx, 30*time.Second)
				err := client.connectOnce(ctx)
				cancel()

				if err == nil {
					// reset backoff on success
					backoff = time.Second
					client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ and re-ensured topology", nil)
					break
				}

				// log retry attempt and sleep with backoff
				client.logger.Error(client.logCtx, "retry_attempted", fmt.Sprintf("RabbitMQ reconnect failed: %v", err), err)

				// cap the backoff
				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
				}
			}
		}
	}
}

// declareTopology declares exchanges, queues, and bindings.
func declareTopology(ch *amqp.Channel, dlqRetention time.Duration) error {
	// exchanges
	if err := ch.ExchangeDeclare(ExchangeOrderEvents, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeDLX, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	// event store queue: receives every envelope, no filter
	if _, err := ch.QueueDeclare(QueueEventStore, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(QueueEventStore, "#", ExchangeOrderEvents, false, nil); err != nil {
		return err
	}

	// billing queue: filtered to created events only
	if _, err := ch.QueueDeclare(QueueBilling, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(QueueBilling, "ORDER_CREATED", ExchangeOrderEvents, false, nil); err != nil {
		return err
	}

	// notifications queue: dead-letters exhausted messages to the DLX under its own key
	_, err := ch.QueueDeclare(QueueNotifications, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLX,
		"x-dead-letter-routing-key": notifyDeadKey,
	})
	if err != nil {
		return err
	}
	if err := ch.QueueBind(QueueNotifications, "#", ExchangeOrderEvents, false, nil); err != nil {
		return err
	}

	// DLQ retains dead letters for manual inspection, then expires them
	_, err = ch.QueueDeclare(QueueNotifyDLQ, true, false, false, false, amqp.Table{
		"x-message-ttl": dlqRetention.Milliseconds(),
	})
	if err != nil {
		return err
	}
	return ch.QueueBind(QueueNotifyDLQ, notifyDeadKey, ExchangeDLX, false, nil)
}
