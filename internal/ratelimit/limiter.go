package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	// AnalyzePerMinute bounds orchestrated runs per client IP, since each one
	// may spend AI tokens
	AnalyzePerMinute int
	CleanupInterval  time.Duration
	// IdleTTL is how long an unused local bucket is kept
	IdleTTL time.Duration
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		AnalyzePerMinute: 10,
		CleanupInterval:  10 * time.Minute,
		IdleTTL:          time.Hour,
	}
}

// Rate is a request allowance over a period
type Rate struct {
	Limit  int
	Period time.Duration
}

// PerMinute returns a per-minute rate
func PerMinute(n int) Rate {
	return Rate{Limit: n, Period: time.Minute}
}

// Result is the outcome of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces rates in Redis, falling back to in-process token buckets
// when Redis is disabled or failing
type Limiter struct {
	redis   *RedisClient
	limiter *redis_rate.Limiter
	config  Config
	metrics *monitoring.Metrics

	mu      sync.Mutex
	buckets map[string]*bucket

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewLimiter creates a limiter and starts its bucket sweeper. Call Close to
// stop it.
func NewLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *Limiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}

	l := &Limiter{
		redis:   redisClient,
		config:  config,
		metrics: metrics,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if redisClient.IsEnabled() {
		l.limiter = redis_rate.NewLimiter(redisClient.Client())
	}

	go l.sweep()
	return l
}

// Config returns the limiter configuration
func (l *Limiter) Config() Config {
	return l.config
}

// Allow spends one request against key
func (l *Limiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if r.Limit <= 0 || r.Period <= 0 {
		return nil, fmt.Errorf("invalid rate %d per %s", r.Limit, r.Period)
	}

	if l.limiter != nil {
		res, err := l.allowRedis(ctx, key, r)
		if err == nil {
			return res, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if l.metrics != nil {
			l.metrics.IncrementRateLimitRedisError()
		}
	}

	if l.metrics != nil {
		l.metrics.IncrementRateLimitFallback()
	}
	return l.allowLocal(key, r), nil
}

func (l *Limiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	res, err := l.limiter.Allow(ctx, key, redis_rate.Limit{Rate: r.Limit, Burst: r.Limit, Period: r.Period})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	result := &Result{
		Allowed:   res.Allowed > 0,
		Limit:     res.Limit.Rate,
		Remaining: res.Remaining,
		ResetAt:   time.Now().Add(res.ResetAfter),
	}
	if !result.Allowed {
		result.RetryAfter = res.RetryAfter
	}
	return result, nil
}

func (l *Limiter) allowLocal(key string, r Rate) *Result {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(r.Period/time.Duration(r.Limit)), r.Limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	result := &Result{
		Allowed: b.limiter.AllowN(now, 1),
		Limit:   r.Limit,
	}

	tokens := b.limiter.TokensAt(now)
	if tokens > 0 {
		result.Remaining = int(tokens)
	}
	refill := time.Duration(float64(r.Limit)-tokens) * (r.Period / time.Duration(r.Limit))
	result.ResetAt = now.Add(refill)
	if !result.Allowed {
		result.RetryAfter = time.Duration((1 - tokens) * float64(r.Period/time.Duration(r.Limit)))
	}
	return result
}

// Reset clears the allowance of key
func (l *Limiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()

	if l.limiter != nil {
		return l.limiter.Reset(ctx, key)
	}
	return nil
}

func (l *Limiter) sweep() {
	defer close(l.done)
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.cleanup(time.Now())
		}
	}
}

// cleanup drops local buckets idle for longer than IdleTTL
func (l *Limiter) cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.config.IdleTTL {
			delete(l.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Removed idle rate limit buckets", "count", removed)
	}
	return removed
}

// Close stops the sweeper
func (l *Limiter) Close() {
	l.once.Do(func() {
		close(l.stop)
		<-l.done
	})
}

// Stats returns limiter statistics
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	local := len(l.buckets)
	l.mu.Unlock()

	return map[string]interface{}{
		"redis_enabled":      l.redis.IsEnabled(),
		"local_buckets":      local,
		"analyze_per_minute": l.config.AnalyzePerMinute,
		"redis_pool":         l.redis.PoolStats(),
	}
}
