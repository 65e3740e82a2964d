package monitoring

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const maxResponseSamples = 1000

// Metrics holds service counters. All methods are safe for concurrent use.
type Metrics struct {
	RequestCount int64
	ErrorCount   int64
	CacheHits    int64
	CacheMisses  int64

	AnalysesStarted   int64
	AnalysesCompleted int64
	AnalysesFailed    int64
	TokensConsumed    int64

	RateLimitBlocks        int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64

	StartTime time.Time

	responseTimes []time.Duration
	statusCounts  map[int]int64
	layerSkips    map[string]int64
	collabCalls   map[string]int64
	collabErrors  map[string]int64
	mu            sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:     time.Now(),
		responseTimes: make([]time.Duration, 0, maxResponseSamples),
		statusCounts:  make(map[int]int64),
		layerSkips:    make(map[string]int64),
		collabCalls:   make(map[string]int64),
		collabErrors:  make(map[string]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// RecordAnalysisStarted counts a new orchestrated run
func (m *Metrics) RecordAnalysisStarted() {
	atomic.AddInt64(&m.AnalysesStarted, 1)
}

// RecordAnalysisFinished counts a finished run and the tokens it spent
func (m *Metrics) RecordAnalysisFinished(failed bool, tokens int) {
	if failed {
		atomic.AddInt64(&m.AnalysesFailed, 1)
	} else {
		atomic.AddInt64(&m.AnalysesCompleted, 1)
	}
	atomic.AddInt64(&m.TokensConsumed, int64(tokens))
}

// RecordLayerSkip counts a layer skipped for budget or availability
func (m *Metrics) RecordLayerSkip(layer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layerSkips[layer]++
}

// RecordCollaboratorCall counts a collaborator call and its outcome
func (m *Metrics) RecordCollaboratorCall(name string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collabCalls[name]++
	if !success {
		m.collabErrors[name]++
	}
}

// IncrementRateLimitBlock counts a request rejected by the rate limiter
func (m *Metrics) IncrementRateLimitBlock() {
	atomic.AddInt64(&m.RateLimitBlocks, 1)
}

// IncrementRateLimitRedisError counts a Redis failure in the rate limiter
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback counts a decision made by the local limiter
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// RecordResponseTime keeps the most recent samples for percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseTimes = append(m.responseTimes, duration)
	if len(m.responseTimes) > maxResponseSamples {
		m.responseTimes = m.responseTimes[1:]
	}
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCounts[statusCode]++
}

// PercentileResponseTime returns the given percentile of recent response times
func (m *Metrics) PercentileResponseTime(percentile float64) time.Duration {
	m.mu.RLock()
	times := append([]time.Duration(nil), m.responseTimes...)
	m.mu.RUnlock()

	if len(times) == 0 {
		return 0
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}
	return times[index]
}

func copyCounts[K comparable](src map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// GetStats returns a snapshot of all metrics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errs := atomic.LoadInt64(&m.ErrorCount)
	hits := atomic.LoadInt64(&m.CacheHits)
	misses := atomic.LoadInt64(&m.CacheMisses)

	errorRate := 0.0
	if requests > 0 {
		errorRate = float64(errs) / float64(requests) * 100
	}
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses) * 100
	}

	m.mu.RLock()
	statuses := copyCounts(m.statusCounts)
	skips := copyCounts(m.layerSkips)
	calls := copyCounts(m.collabCalls)
	callErrors := copyCounts(m.collabErrors)
	m.mu.RUnlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"start_time":             m.StartTime.Format(time.RFC3339),
		"total_requests":         requests,
		"error_count":            errs,
		"error_rate_percent":     errorRate,
		"cache_hits":             hits,
		"cache_misses":           misses,
		"cache_hit_rate_percent": hitRate,

		"p50_response_time_ms":     float64(m.PercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.PercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.PercentileResponseTime(99)) / 1e6,
		"status_code_distribution": statuses,

		"analyses_started":    atomic.LoadInt64(&m.AnalysesStarted),
		"analyses_completed":  atomic.LoadInt64(&m.AnalysesCompleted),
		"analyses_failed":     atomic.LoadInt64(&m.AnalysesFailed),
		"tokens_consumed":     atomic.LoadInt64(&m.TokensConsumed),
		"layer_skips":         skips,
		"collaborator_calls":  calls,
		"collaborator_errors": callErrors,

		"rate_limit_blocks":       atomic.LoadInt64(&m.RateLimitBlocks),
		"rate_limit_redis_errors": atomic.LoadInt64(&m.RateLimitRedisErrors),
		"rate_limit_fallbacks":    atomic.LoadInt64(&m.RateLimitFallbackCount),

		"go_goroutines":       runtime.NumGoroutine(),
		"go_gc_count":         mem.NumGC,
		"go_heap_alloc_bytes": mem.HeapAlloc,
		"go_heap_sys_bytes":   mem.HeapSys,
	}
}
