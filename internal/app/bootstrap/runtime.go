// Package bootstrap wires configuration into the services shared by the
// API server and the conversation worker.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/agenda-platform/internal/cache"
	appconfig "github.com/wolfman30/agenda-platform/internal/config"
	"github.com/wolfman30/agenda-platform/internal/retry"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when no backend
// needs one. When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if cfg.CacheBackend != "redis" && cfg.SessionBackend != "redis" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgres opens the pgx pool and a database/sql handle over it. Both
// are nil when DATABASE_URL is empty, which selects the in-memory stores.
func BuildPostgres(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, *sql.DB, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: parse database url: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBMaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping database: %w", err)
	}
	logger.Info("database connected", "max_conns", poolCfg.MaxConns)
	return pool, stdlib.OpenDBFromPool(pool), nil
}

// BuildCache selects the read-through cache backend.
func BuildCache(cfg *appconfig.Config, client *redis.Client) (cache.Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	return cache.New(cfg.CacheBackend, cfg.CacheTTL, client)
}

// RetryPolicy is the read-path retry policy from DB_RETRY_*.
func RetryPolicy(cfg *appconfig.Config) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg == nil {
		return p
	}
	if cfg.DBRetryMaxAttempts > 0 {
		p.MaxAttempts = cfg.DBRetryMaxAttempts
	}
	if cfg.DBRetryBaseDelay > 0 {
		p.Backoff = retry.Exponential(cfg.DBRetryBaseDelay)
	}
	return p
}
