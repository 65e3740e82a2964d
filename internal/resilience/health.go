package resilience

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DegradationLevel summarizes how a collaborator has been behaving
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	default:
		return "normal"
	}
}

// HealthConfig sets the error-rate thresholds for each level
type HealthConfig struct {
	DegradedThreshold float64 `json:"degraded_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`
	// MinSamples is the call count before rates are trusted
	MinSamples int64 `json:"min_samples"`
}

// DefaultHealthConfig returns the standard thresholds
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		DegradedThreshold: 0.1,
		CriticalThreshold: 0.5,
		MinSamples:        5,
	}
}

// CollaboratorHealth is a point-in-time view of one collaborator
type CollaboratorHealth struct {
	Name          string     `json:"name"`
	Level         string     `json:"level"`
	ErrorRate     float64    `json:"error_rate"`
	Calls         int64      `json:"calls"`
	Errors        int64      `json:"errors"`
	Skips         int64      `json:"skips"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorTime *time.Time `json:"last_error_time,omitempty"`
}

type collaboratorState struct {
	level         DegradationLevel
	calls, errs   int64
	skips         int64
	lastError     string
	lastErrorTime time.Time
}

// HealthTracker records call outcomes per collaborator so the service can
// report which AI layers are currently degraded
type HealthTracker struct {
	mu     sync.RWMutex
	config HealthConfig
	states map[string]*collaboratorState
}

// NewHealthTracker creates a tracker
func NewHealthTracker(config HealthConfig) *HealthTracker {
	return &HealthTracker{config: config, states: make(map[string]*collaboratorState)}
}

func (h *HealthTracker) state(name string) *collaboratorState {
	s, ok := h.states[name]
	if !ok {
		s = &collaboratorState{}
		h.states[name] = s
	}
	return s
}

// RecordSuccess records a completed call
func (h *HealthTracker) RecordSuccess(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.state(name)
	s.calls++
	h.updateLevel(name, s)
}

// RecordFailure records a failed call
func (h *HealthTracker) RecordFailure(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.state(name)
	s.calls++
	s.errs++
	if err != nil {
		s.lastError = err.Error()
	}
	s.lastErrorTime = time.Now()
	h.updateLevel(name, s)
}

// RecordSkip records a layer that was not called, e.g. because its breaker
// was open or the budget ran out
func (h *HealthTracker) RecordSkip(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state(name).skips++
}

func (h *HealthTracker) updateLevel(name string, s *collaboratorState) {
	old := s.level
	rate := float64(s.errs) / float64(s.calls)

	switch {
	case s.calls < h.config.MinSamples:
		s.level = LevelNormal
	case rate >= h.config.CriticalThreshold:
		s.level = LevelCritical
	case rate >= h.config.DegradedThreshold:
		s.level = LevelDegraded
	default:
		s.level = LevelNormal
	}

	if old != s.level {
		slog.Warn("Collaborator degradation level changed",
			"collaborator", name,
			"old_level", old.String(),
			"new_level", s.level.String(),
			"error_rate", rate,
			"calls", s.calls)
	}
}

// Health returns one collaborator's health
func (h *HealthTracker) Health(name string) (CollaboratorHealth, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.states[name]
	if !ok {
		return CollaboratorHealth{Name: name, Level: LevelNormal.String()}, false
	}
	return snapshot(name, s), true
}

// All returns every tracked collaborator sorted by name
func (h *HealthTracker) All() []CollaboratorHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]CollaboratorHealth, 0, len(h.states))
	for name, s := range h.states {
		out = append(out, snapshot(name, s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Degraded reports whether any collaborator is above the degraded threshold
func (h *HealthTracker) Degraded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.states {
		if s.level != LevelNormal {
			return true
		}
	}
	return false
}

func snapshot(name string, s *collaboratorState) CollaboratorHealth {
	out := CollaboratorHealth{
		Name:      name,
		Level:     s.level.String(),
		Calls:     s.calls,
		Errors:    s.errs,
		Skips:     s.skips,
		LastError: s.lastError,
	}
	if s.calls > 0 {
		out.ErrorRate = float64(s.errs) / float64(s.calls)
	}
	if !s.lastErrorTime.IsZero() {
		t := s.lastErrorTime
		out.LastErrorTime = &t
	}
	return out
}
