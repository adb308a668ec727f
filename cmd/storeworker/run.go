// cmd/storeworker/run.go
package storeworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	worker "ecommerce-orders/internal/app/storeworker"
	"ecommerce-orders/internal/shared/config"
	"ecommerce-orders/internal/shared/logger"
	"ecommerce-orders/internal/shared/rabbitmq"
	"ecommerce-orders/internal/shared/redisstore"
)

func Run(ctx context.Context) error {
	// set up a new logger for the event-store worker with a static request ID for startup logs
	logger := logger.NewLogger("event-store-worker")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	// connect to the Redis event store
	rdb, err := redisstore.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err)
		return err
	}
	defer rdb.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	ttl := time.Duration(cfg.Events.TTLSeconds) * time.Second
	writer := worker.NewWriter(redisstore.NewEventsRepo(rdb, ttl), ttl, logger)

	logger.Info(ctx, "service_started", "Event store worker started", nil)

	// start a single consumer loop (scale out with more goroutines if needed)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.ConsumeForever(ctx, rmq, writer, logger)
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
		// consumer exited unexpectedly -> let main exit non-zero
		return fmt.Errorf("event store consumer exited unexpectedly")
	}

	logger.Info(logger.WithRequestID(context.Background(), "shutdown-001"), "graceful_shutdown", "Shutting down event store worker", nil)

	wg.Wait()
	return nil
}
