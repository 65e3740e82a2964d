package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/database"
	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
	"github.com/ZanzyTHEbar/creative-scorer/internal/orchestrator"
	"github.com/ZanzyTHEbar/creative-scorer/internal/ratelimit"
	"github.com/ZanzyTHEbar/creative-scorer/internal/types"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

const sampleSignals = `{
	"deterministic": {
		"contrast_rms": 62,
		"white_space_percentage": 35,
		"text_area_percentage": 18,
		"word_count": 14,
		"cta_present": {"value": 1, "unit": "boolean"},
		"cta_prominence": 70
	},
	"perceptual": {
		"emotional_appeal": 68,
		"brand_visibility": 55
	},
	"cognitive": {
		"claim_specificity": 60,
		"cognitive_load": 30
	}
}`

type testServer struct {
	*Server
	router  *gin.Engine
	metrics *monitoring.Metrics
}

type serverOption func(*Deps)

func withRedis(t *testing.T) serverOption {
	return func(d *Deps) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		d.Redis = ratelimit.WrapRedisClient(client)
	}
}

func withTables(t *testing.T, tables ...*benchmarks.Table) serverOption {
	return func(d *Deps) {
		db, err := database.NewDB(filepath.Join(t.TempDir(), "benchmarks.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		svc := database.NewTableService(database.NewRepository(db))
		require.NoError(t, svc.Seed(context.Background(), tables, nil))
		d.DB = db
		d.Tables = svc
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	metrics := monitoring.NewMetrics()
	deps := Deps{
		Logger:           monitoring.NewLoggerTo(io.Discard, "error"),
		Metrics:          metrics,
		AnalyzePerMinute: 3,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	s, err := NewServer(deps)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return &testServer{Server: s, router: s.Router(), metrics: metrics}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		opts      []serverOption
		wantRedis bool
	}{
		{name: "without redis", wantRedis: false},
		{name: "with redis", opts: []serverOption{withRedis(t)}, wantRedis: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.opts...)

			w := ts.do(http.MethodGet, "/health", "")
			require.Equal(t, http.StatusOK, w.Code)

			var resp types.HealthResponse
			decode(t, w, &resp)
			assert.Equal(t, "ok", resp.Status)
			assert.Equal(t, version, resp.Version)
			assert.Equal(t, tt.wantRedis, resp.Redis["enabled"])
			assert.NotEmpty(t, w.Header().Get(monitoring.RequestIDHeader))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		})
	}
}

func TestScore(t *testing.T) {
	ts := newTestServer(t)
	body := `{"signals": ` + sampleSignals + `, "context": {"category": "tech", "platform": "meta", "funnel_stage": "awareness"}}`

	first := ts.do(http.MethodPost, "/v1/score", body)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	var report analysis.Report
	decode(t, first, &report)
	assert.NotEmpty(t, report.Result.Pillars)
	assert.GreaterOrEqual(t, report.Result.OverallScore, 0.0)
	assert.LessOrEqual(t, report.Result.OverallScore, 100.0)

	second := ts.do(http.MethodPost, "/v1/score", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestScoreRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "malformed json", body: `{"signals":`, contentType: "application/json", wantStatus: http.StatusBadRequest},
		{name: "wrong content type", body: `{}`, contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/score", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantState  orchestrator.State
	}{
		{
			name:       "measured signals complete",
			body:       `{"creative": {"text": "Save 20% on your first order today", "signals": {"contrast_rms": 62, "word_count": 7}}, "context": {"category": "fmcg"}}`,
			wantStatus: http.StatusOK,
			wantState:  orchestrator.StateCompleted,
		},
		{
			name:       "empty creative fails",
			body:       `{"creative": {}, "context": {"category": "fmcg"}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantState:  orchestrator.StateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			w := ts.do(http.MethodPost, "/v1/analyze", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var result orchestrator.Result
			decode(t, w, &result)
			assert.Equal(t, tt.wantState, result.Status)
			assert.NotEmpty(t, result.AnalysisID)
			assert.NotEmpty(t, result.Stages)
		})
	}
}

func TestAnalyzeRejectsUnsafeRef(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/v1/analyze", `{"creative": {"ref": "../../etc/passwd"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid creative ref")
}

func TestAnalyzeRateLimit(t *testing.T) {
	tests := []struct {
		name string
		opts []serverOption
	}{
		{name: "local buckets"},
		{name: "redis", opts: []serverOption{withRedis(t)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.opts...)
			body := `{"creative": {"signals": {"contrast_rms": 50}}}`

			for i := 0; i < 3; i++ {
				w := ts.do(http.MethodPost, "/v1/analyze", body)
				require.Equal(t, http.StatusOK, w.Code, "request %d", i)
				assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
			}

			w := ts.do(http.MethodPost, "/v1/analyze", body)
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			assert.Equal(t, int64(1), ts.metrics.GetStats()["rate_limit_blocks"])
		})
	}
}

func TestValidate(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name      string
		signals   string
		wantValid bool
		wantSane  bool
	}{
		{name: "plausible", signals: sampleSignals, wantValid: true, wantSane: true},
		{name: "out of range", signals: `{"deterministic": {"word_count": 900}}`, wantValid: false, wantSane: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/v1/validate", `{"signals": `+tt.signals+`}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp types.ValidateResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.wantValid, resp.IsValid)
			assert.Equal(t, tt.wantSane, resp.SanityPassed)
			if !tt.wantSane {
				assert.NotEmpty(t, resp.Issues)
			}
		})
	}
}

func TestDifferentiation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/v1/differentiation", `{"text": "The best quality, trusted by millions", "signals": {}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Contains(t, resp, "distinctiveness_score")
	assert.NotEmpty(t, resp["rules_version"])
}

func TestCompare(t *testing.T) {
	ts := newTestServer(t)

	t.Run("two signal sets", func(t *testing.T) {
		body := `{"a": {"signals": ` + sampleSignals + `}, "b": {"signals": {"deterministic": {"contrast_rms": 20, "word_count": 80}}}, "context": {"category": "tech"}}`
		w := ts.do(http.MethodPost, "/v1/compare", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp types.CompareResponse
		decode(t, w, &resp)
		assert.NotEmpty(t, resp.Comparison.OverallWinner)
		assert.NotEmpty(t, resp.A.Pillars)
		assert.NotEmpty(t, resp.B.Pillars)
	})

	t.Run("missing side", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/v1/compare", `{"a": {"signals": `+sampleSignals+`}, "b": {}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "creative b needs signals or a result")
	})
}

func TestPercentile(t *testing.T) {
	stored := benchmarks.Empty("tech")
	stored.Overall = &benchmarks.Quartiles{P25: 40, P50: 55, P75: 70, P90: 80}
	ts := newTestServer(t, withTables(t, stored))

	tests := []struct {
		name           string
		body           string
		wantStatus     int
		wantSource     string
		wantPercentile float64
	}{
		{name: "request quartiles", body: `{"score": 60, "quartiles": {"p25": 30, "p50": 60, "p75": 80}}`, wantStatus: http.StatusOK, wantSource: "request", wantPercentile: 50},
		{name: "stored distribution", body: `{"score": 55, "category": "Tech"}`, wantStatus: http.StatusOK, wantSource: "stored", wantPercentile: 50},
		{name: "no distribution", body: `{"score": 42, "category": "auto"}`, wantStatus: http.StatusOK, wantSource: "score", wantPercentile: 42},
		{name: "missing score", body: `{"category": "tech"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/v1/percentile", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp types.PercentileResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.wantSource, resp.Source)
			assert.InDelta(t, tt.wantPercentile, resp.Percentile, 0.01)
		})
	}
}

func TestRules(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/v1/rules", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Version string         `json:"version"`
		Counts  map[string]int `json:"counts"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Version)
	assert.NotEmpty(t, resp.Counts)
}

func TestMetricsAndCacheStats(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodGet, "/health", "")

	w := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	decode(t, w, &stats)
	assert.Contains(t, stats, "compression")
	assert.Contains(t, stats, "rate_limiter")
	assert.Contains(t, stats, "total_requests")

	w = ts.do(http.MethodGet, "/cache/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCacheClear(t *testing.T) {
	ts := newTestServer(t)
	body := `{"signals": ` + sampleSignals + `}`

	require.Equal(t, "MISS", ts.do(http.MethodPost, "/v1/score", body).Header().Get("X-Cache"))
	require.Equal(t, "HIT", ts.do(http.MethodPost, "/v1/score", body).Header().Get("X-Cache"))

	w := ts.do(http.MethodDelete, "/cache", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cleared": 1}`, w.Body.String())

	assert.Equal(t, "MISS", ts.do(http.MethodPost, "/v1/score", body).Header().Get("X-Cache"))
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{name: "wildcard", origins: []string{"*"}, origin: "https://any.example", want: "*"},
		{name: "allowed origin", origins: []string{"https://app.example"}, origin: "https://app.example", want: "https://app.example"},
		{name: "other origin", origins: []string{"https://app.example"}, origin: "https://evil.example", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, func(d *Deps) { d.CORSOrigins = tt.origins })

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
