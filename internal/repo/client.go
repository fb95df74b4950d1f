package repo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient wraps the Redis client with connection diagnostics.
type RedisClient struct {
	*redis.Client
	log *zap.Logger
}

// NewRedisClient creates a new Redis client with production timeouts.
func NewRedisClient(log *zap.Logger, addr string, db int) *RedisClient {
	opts := &redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}
	return WrapRedisClient(log, redis.NewClient(opts))
}

// WrapRedisClient adopts an existing client (tests use miniredis).
func WrapRedisClient(log *zap.Logger, rdb *redis.Client) *RedisClient {
	return &RedisClient{
		Client: rdb,
		log:    log.Named("redis"),
	}
}

// Close closes the Redis client connection.
func (c *RedisClient) Close() error {
	return c.Client.Close()
}

// Ping uses a short timeout and logs connection diagnostics.
func (c *RedisClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	opts := c.Options()
	log := c.log.With(
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("max_retries", opts.MaxRetries),
	)

	start := time.Now()
	err := c.Client.Ping(ctx).Err()
	elapsed := time.Since(start)

	if err != nil {
		log.Warn("connection failed", zap.Error(err), zap.Duration("ping_rtt", elapsed))
	} else {
		log.Info("connection established", zap.Duration("ping_rtt", elapsed))
	}
	return err
}
