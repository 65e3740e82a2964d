package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
	"github.com/ZanzyTHEbar/creative-scorer/internal/orchestrator"
	"github.com/ZanzyTHEbar/creative-scorer/internal/resilience"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

const (
	userAgent       = "Creative-Scorer/1.0"
	maxResponseSize = 1 << 20
)

// HTTPConfig configures a sidecar collaborator
type HTTPConfig struct {
	Name    string
	URL     string
	Timeout time.Duration
	Breaker *resilience.CircuitBreaker
	Retry   resilience.RetryConfig
	Logger  *monitoring.Logger
}

// HTTPSource calls a measurement or AI sidecar over JSON. It implements
// MeasurementSource, PerceptionSource and ReasoningSource; each sidecar
// answers on its own URL.
type HTTPSource struct {
	name    string
	url     string
	client  *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	logger  *monitoring.Logger
}

// NewHTTPSource creates a sidecar client guarded by a circuit breaker
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Breaker == nil {
		cfg.Breaker = resilience.NewCircuitBreaker(resilience.BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 1,
		})
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}

	return &HTTPSource{
		name:    cfg.Name,
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: cfg.Breaker,
		retry:   cfg.Retry,
		logger:  cfg.Logger,
	}
}

// Name returns the collaborator name
func (s *HTTPSource) Name() string {
	return s.name
}

// Breaker exposes the circuit breaker for health reporting
func (s *HTTPSource) Breaker() *resilience.CircuitBreaker {
	return s.breaker
}

type sidecarRequest struct {
	Ref     string            `json:"ref,omitempty"`
	Text    string            `json:"text,omitempty"`
	Context *analysis.Context `json:"context,omitempty"`
}

type sidecarResponse struct {
	Signals    map[string]json.RawMessage `json:"signals"`
	TokensUsed int                        `json:"tokens_used"`
	Text       string                     `json:"text"`
	Summary    string                     `json:"summary"`
	SceneType  string                     `json:"scene_type"`
}

// Measure implements orchestrator.MeasurementSource
func (s *HTTPSource) Measure(ctx context.Context, creative orchestrator.Creative) (orchestrator.Measurement, error) {
	resp, err := s.post(ctx, sidecarRequest{Ref: creative.Ref, Text: creative.Text})
	if err != nil {
		return orchestrator.Measurement{}, err
	}
	return orchestrator.Measurement{
		Signals:   s.readings(resp.Signals),
		Text:      resp.Text,
		SceneType: resp.SceneType,
	}, nil
}

// Perceive implements orchestrator.PerceptionSource
func (s *HTTPSource) Perceive(ctx context.Context, creative orchestrator.Creative) (orchestrator.LayerOutput, error) {
	resp, err := s.post(ctx, sidecarRequest{Ref: creative.Ref})
	if err != nil {
		return orchestrator.LayerOutput{}, err
	}
	return s.layerOutput(resp), nil
}

// Reason implements orchestrator.ReasoningSource
func (s *HTTPSource) Reason(ctx context.Context, text string, c analysis.Context) (orchestrator.LayerOutput, error) {
	resp, err := s.post(ctx, sidecarRequest{Text: text, Context: &c})
	if err != nil {
		return orchestrator.LayerOutput{}, err
	}
	return s.layerOutput(resp), nil
}

func (s *HTTPSource) layerOutput(resp *sidecarResponse) orchestrator.LayerOutput {
	return orchestrator.LayerOutput{
		Signals:    s.readings(resp.Signals),
		TokensUsed: resp.TokensUsed,
		Summary:    resp.Summary,
		SceneType:  resp.SceneType,
	}
}

// readings decodes each signal separately so one malformed reading only
// drops that signal
func (s *HTTPSource) readings(raw map[string]json.RawMessage) signals.LayerReadings {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(signals.LayerReadings, len(raw))
	for _, name := range names {
		var r signals.Reading
		if err := json.Unmarshal(raw[name], &r); err != nil {
			slog.Warn("Dropping malformed signal from collaborator",
				"collaborator", s.name,
				"signal", name,
				"error", err)
			continue
		}
		out[name] = r
	}
	return out
}

func (s *HTTPSource) post(ctx context.Context, payload sidecarRequest) (*sidecarResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", s.name, err)
	}

	var out sidecarResponse
	err = s.breaker.Call(func() error {
		return resilience.Retry(ctx, s.retry, func() error {
			return s.do(ctx, body, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HTTPSource) do(ctx context.Context, body []byte, out *sidecarResponse) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log(0, start, false)
		return fmt.Errorf("%s request failed: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		s.log(resp.StatusCode, start, false)
		return &resilience.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	*out = sidecarResponse{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		s.log(resp.StatusCode, start, false)
		return fmt.Errorf("failed to decode %s response: %w", s.name, err)
	}
	s.log(resp.StatusCode, start, true)
	return nil
}

func (s *HTTPSource) log(status int, start time.Time, success bool) {
	if s.logger != nil {
		s.logger.CollaboratorLogger(s.name, s.url, status, time.Since(start), success)
	}
}
