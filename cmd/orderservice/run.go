// cmd/orderservice/run.go
package orderservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	service "ecommerce-orders/internal/app/orderservice"
	"ecommerce-orders/internal/shared/config"
	"ecommerce-orders/internal/shared/logger"
	pg "ecommerce-orders/internal/shared/postgres"
	"ecommerce-orders/internal/shared/rabbitmq"
)

// Run wires the order service and blocks until ctx is cancelled.
// It returns the first terminal error (server or startup failure).
func Run(ctx context.Context, port int, maxConcurrent int) error {
	// set up a new logger for order service
	logger := logger.NewLogger("order-service")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	// set up a Postgres connection pool and bring the schema up to date
	pool, err := pg.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err)
		return err
	}
	defer pool.Close()

	if err := pg.RunMigrations(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "db_migration_failed", "Failed to apply database migrations", err)
		return err
	}

	// connect to RabbitMQ for publishing order events
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	// set up repositories, unit of work, event publisher, and application service
	uow := pg.NewUnitOfWork(pool)
	ordersRepo := pg.NewOrdersRepo()
	productsRepo := pg.NewProductsRepo()
	eventsPub := service.NewEventPublisher(&rabbitmq.MQPublisher{Client: rmq}, rabbitmq.ExchangeOrderEvents, logger)
	svc := service.New(uow, ordersRepo, productsRepo, eventsPub, logger)

	// set up HTTP handler
	h := service.NewOrderHTTPHandler(svc, logger)

	mux := http.NewServeMux()
	h.Register(mux)

	// Concurrency limiter (global) — blocks when capacity is full.
	handler := withConcurrencyLimit(maxConcurrent, mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Tie server lifetime to incoming ctx (nice for tests / parent cancel).
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Order Service started on port %d", port),
		map[string]any{"port": port, "max_concurrent": maxConcurrent},
	)

	// ---- Serve + graceful shutdown -------------------------------------------
	errCh := make(chan error, 1)
	go func() {
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// Graceful HTTP shutdown (drain keep-alives / in-flight requests).
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx) // best-effort
		return nil
	case err := <-errCh:
		// Server returned a terminal error at startup or during run.
		return err
	}
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It *blocks* until capacity is available, which provides natural backpressure.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sem <- struct{}{}        // acquire
		defer func() { <-sem }() // release
		next.ServeHTTP(w, r)
	})
}
