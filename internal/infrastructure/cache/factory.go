package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewLocker builds the invoice locker selected by cfg. client may be nil
// for the memory backend.
func NewLocker(cfg config.LockConfig, client redis.UniversalClient, logger *zap.Logger) (shared.Locker, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Info("Using in-process invoice locks")
		return NewInMemoryInvoiceLocker(cfg.WaitTimeout), nil
	case config.BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis lock backend requires a redis client")
		}
		logger.Info("Using redis invoice locks", zap.Duration("ttl", cfg.TTL))
		return NewRedisInvoiceLocker(client,
			WithLockTTL(cfg.TTL),
			WithLockWait(cfg.WaitTimeout, cfg.RetryInterval),
			WithLockLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

// NewIdempotencyStore builds the store selected by cfg. It returns nil when
// idempotency is disabled.
func NewIdempotencyStore(cfg config.IdempotencyConfig, client redis.UniversalClient, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if !cfg.Enabled {
		logger.Info("Idempotency keys disabled")
		return nil, nil
	}
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory idempotency store; keys are not shared between instances")
		return NewInMemoryIdempotencyStore(), nil
	case config.BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis idempotency backend requires a redis client")
		}
		return NewRedisIdempotencyStore(client, ""), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
	}
}
