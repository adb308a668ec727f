// cmd/notificationworker/run.go
package notificationworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	worker "ecommerce-orders/internal/app/notificationworker"
	"ecommerce-orders/internal/shared/config"
	"ecommerce-orders/internal/shared/logger"
	"ecommerce-orders/internal/shared/rabbitmq"
	"ecommerce-orders/internal/shared/smtp"
)

func Run(ctx context.Context) error {
	// set up a new logger for the notification worker with a static request ID for startup logs
	logger := logger.NewLogger("notification-worker")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	consumer := worker.NewConsumer(
		smtp.NewMailer(cfg),
		&rabbitmq.MQPublisher{Client: rmq},
		cfg.Notifications.BatchSize,
		time.Duration(cfg.Notifications.BatchWaitSeconds)*time.Second,
		cfg.Notifications.MaxAttempts,
		logger,
	)

	logger.Info(ctx, "service_started", "Notification worker started", nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.ConsumeForever(ctx, rmq)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		// normal shutdown path
	case <-done:
		return fmt.Errorf("notification consumer exited unexpectedly")
	}

	logger.Info(logger.WithRequestID(context.Background(), "shutdown-001"), "graceful_shutdown", "Shutting down notification worker", nil)

	wg.Wait()
	return nil
}
