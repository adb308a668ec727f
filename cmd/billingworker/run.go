// cmd/billingworker/run.go
package billingworker

import (
	"context"
	"fmt"
	"sync"

	worker "ecommerce-orders/internal/app/billingworker"
	"ecommerce-orders/internal/shared/config"
	"ecommerce-orders/internal/shared/logger"
	"ecommerce-orders/internal/shared/rabbitmq"
)

func Run(ctx context.Context) error {
	// set up a new logger for the billing worker with a static request ID for startup logs
	logger := logger.NewLogger("billing-worker")
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

	trigger := worker.NewTrigger(logger)

	logger.Info(ctx, "service_started", "Billing worker started", nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.ConsumeForever(ctx, rmq, trigger, logger)
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
		return fmt.Errorf("billing consumer exited unexpectedly")
	}

	logger.Info(logger.WithRequestID(context.Background(), "shutdown-001"), "graceful_shutdown", "Shutting down billing worker", nil)

	wg.Wait()
	return nil
}
