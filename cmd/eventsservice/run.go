// cmd/eventsservice/run.go
package eventsservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	service "ecommerce-orders/internal/app/eventsservice"
	"ecommerce-orders/internal/shared/config"
	"ecommerce-orders/internal/shared/logger"
	"ecommerce-orders/internal/shared/redisstore"
)

// Run wires the events query service and blocks until ctx is cancelled.
func Run(ctx context.Context, port int) error {
	logger := logger.NewLogger("events-service")

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

	repo := redisstore.NewEventsRepo(rdb, time.Duration(cfg.Events.TTLSeconds)*time.Second)
	svc := service.NewService(repo, logger)

	h := service.NewEventsHTTPHandler(svc, logger)

	mux := http.NewServeMux()
	h.Register(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Events Service started on port %d", port),
		map[string]any{"port": port},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx) // best-effort
		return nil
	case err := <-errCh:
		return err
	}
}
