package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis connection used for distributed limits. A
// disabled client makes the limiter fall back to local buckets.
type RedisClient struct {
	client  *redis.Client
	enabled bool
	addr    string
}

// NewRedisClient connects to Redis. An empty address yields a disabled
// client; a failed ping yields a disabled client and the ping error.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	if addr == "" {
		slog.Warn("Redis address not configured, rate limiting will use in-memory fallback")
		return &RedisClient{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		slog.Error("Redis ping failed, falling back to in-memory rate limiting", "addr", addr, "error", err)
		return &RedisClient{addr: addr}, fmt.Errorf("redis ping failed: %w", err)
	}

	slog.Info("Redis client connected", "addr", addr, "db", db)
	return &RedisClient{client: client, enabled: true, addr: addr}, nil
}

// WrapRedisClient uses an existing connection
func WrapRedisClient(client *redis.Client) *RedisClient {
	if client == nil {
		return &RedisClient{}
	}
	return &RedisClient{client: client, enabled: true, addr: client.Options().Addr}
}

// Client returns the underlying connection
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// IsEnabled reports whether Redis is in use
func (r *RedisClient) IsEnabled() bool {
	return r != nil && r.enabled
}

// HealthCheck pings Redis
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if !r.IsEnabled() {
		return fmt.Errorf("redis is disabled")
	}
	return r.client.Ping(ctx).Err()
}

// Close closes the connection
func (r *RedisClient) Close() error {
	if r.IsEnabled() && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// PoolStats returns connection pool statistics
func (r *RedisClient) PoolStats() map[string]interface{} {
	if !r.IsEnabled() {
		return map[string]interface{}{"enabled": false}
	}

	stats := r.client.PoolStats()
	return map[string]interface{}{
		"enabled":     true,
		"addr":        r.addr,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
