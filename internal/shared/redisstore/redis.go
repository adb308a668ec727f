package redisstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ecommerce-orders/internal/shared/config"
	"ecommerce-orders/internal/shared/logger"
)

// Connect opens a Redis client for the event store and verifies connectivity.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	start := time.Now()

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port)),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info(ctx, "redis_connected", "Connected to Redis event store", map[string]any{"duration_ms": time.Since(start).Milliseconds()})

	return client, nil
}
