package monitoring

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLogger_AnalysisLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info")

	logger.AnalysisLogger("abc", "completed", 72.5, "HIGH", 4500, 120*time.Millisecond)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Analysis Completed", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "abc", entry["analysis_id"])
	assert.Equal(t, 72.5, entry["overall_score"])
	assert.Equal(t, float64(4500), entry["tokens_used"])
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, entry, "time")
}

func TestLogger_DebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info")
	logger.StageLogger("abc", "perceptual", "skipped", time.Millisecond)
	assert.Empty(t, buf.String())
}

func TestMetrics_GetStats(t *testing.T) {
	m := NewMetrics()
	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.IncrementCacheMiss()
	m.IncrementCacheMiss()
	m.RecordAnalysisStarted()
	m.RecordAnalysisFinished(false, 2000)
	m.RecordLayerSkip("perceptual")
	m.RecordCollaboratorCall("reasoning", false)
	m.RecordRequestByStatus(200)
	m.RecordResponseTime(10 * time.Millisecond)
	m.RecordResponseTime(30 * time.Millisecond)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, 50.0, stats["error_rate_percent"])
	assert.Equal(t, 25.0, stats["cache_hit_rate_percent"])
	assert.Equal(t, int64(1), stats["analyses_completed"])
	assert.Equal(t, int64(2000), stats["tokens_consumed"])
	assert.Equal(t, map[string]int64{"perceptual": 1}, stats["layer_skips"])
	assert.Equal(t, map[string]int64{"reasoning": 1}, stats["collaborator_errors"])
	assert.Equal(t, map[int]int64{200: 1}, stats["status_code_distribution"])
	assert.Equal(t, 30*time.Millisecond, m.PercentileResponseTime(99))
	assert.Equal(t, 10*time.Millisecond, m.PercentileResponseTime(50))
}

func TestMetrics_ResponseTimeWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < maxResponseSamples+10; i++ {
		m.RecordResponseTime(time.Duration(i))
	}
	assert.Equal(t, time.Duration(10), m.PercentileResponseTime(0))
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info")
	metrics := NewMetrics()

	r := gin.New()
	r.Use(RequestIDMiddleware(), MonitoringMiddleware(metrics, logger))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	t.Run("propagates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-1", w.Body.String())
		assert.True(t, strings.Contains(buf.String(), `"request_id":"req-1"`))
	})

	t.Run("assigns request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("counts errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats["total_requests"])
	assert.Equal(t, int64(1), stats["error_count"])
}
