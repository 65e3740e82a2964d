package orchestrator

import (
	"context"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/differentiation"
	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/recommend"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
	"github.com/ZanzyTHEbar/creative-scorer/internal/validation"
)

// State is a step of the analysis state machine
type State string

const (
	StateValidating        State = "validating"
	StateDeterministic     State = "deterministic"
	StatePerceptual        State = "perceptual"
	StateCognitive         State = "cognitive"
	StateValidatingSignals State = "validating_signals"
	StateScoring           State = "scoring"
	StateDifferentiation   State = "differentiation"
	StateRecommending      State = "recommending"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

// Stage outcomes recorded in the trace
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Creative is the asset under analysis. Ref is handed to the measurement and
// perception collaborators; Signals carries readings measured upstream.
type Creative struct {
	Ref     string                `json:"ref,omitempty"`
	Text    string                `json:"text,omitempty"`
	Signals signals.LayerReadings `json:"signals,omitempty"`
}

// Request is one orchestrated analysis
type Request struct {
	Creative    Creative         `json:"creative"`
	Context     analysis.Context `json:"context"`
	TokenBudget int              `json:"token_budget,omitempty"`
}

// Measurement is the deterministic collaborator's output
type Measurement struct {
	Signals   signals.LayerReadings `json:"signals"`
	Text      string                `json:"text"`
	SceneType string                `json:"scene_type,omitempty"`
}

// LayerOutput is an AI collaborator's output
type LayerOutput struct {
	Signals    signals.LayerReadings `json:"signals"`
	TokensUsed int                   `json:"tokens_used"`
	Summary    string                `json:"summary,omitempty"`
	SceneType  string                `json:"scene_type,omitempty"`
}

// MeasurementSource measures a creative directly and extracts its copy text
type MeasurementSource interface {
	Measure(ctx context.Context, creative Creative) (Measurement, error)
}

// PerceptionSource interprets a creative visually
type PerceptionSource interface {
	Perceive(ctx context.Context, creative Creative) (LayerOutput, error)
}

// ReasoningSource reasons about copy text in context
type ReasoningSource interface {
	Reason(ctx context.Context, text string, c analysis.Context) (LayerOutput, error)
}

// TableProvider supplies read-only benchmark and weight tables
type TableProvider interface {
	Benchmarks(ctx context.Context, c analysis.Context) (*benchmarks.Table, error)
	WeightOverrides(ctx context.Context, c analysis.Context) (map[string]float64, error)
}

// StageTrace records one state visit
type StageTrace struct {
	State      State  `json:"state"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
}

// Result is everything an analysis produced, including partial data from a
// failed run
type Result struct {
	AnalysisID       string                     `json:"analysis_id"`
	Status           State                      `json:"status"`
	Stages           []StageTrace               `json:"stages"`
	Signals          signals.Input              `json:"signals"`
	Score            *analysis.FinalScoreResult `json:"score,omitempty"`
	Recommendations  []recommend.Recommendation `json:"recommendations"`
	Optimization     *recommend.Simulation      `json:"optimization,omitempty"`
	Validation       *validation.Result         `json:"validation,omitempty"`
	Differentiation  *differentiation.Result    `json:"differentiation,omitempty"`
	Cognition        *analysis.Cognition        `json:"cognition,omitempty"`
	Text             string                     `json:"text,omitempty"`
	VisualSummary    string                     `json:"visual_summary,omitempty"`
	Budget           Budget                     `json:"budget"`
	TokensUsed       map[signals.Layer]int      `json:"tokens_used"`
	TotalTokensUsed  int                        `json:"total_tokens_used"`
	LayerSummary     map[string]int             `json:"layer_summary"`
	Warnings         []string                   `json:"warnings"`
	Issues           []errors.Issue             `json:"issues"`
	Errors           []string                   `json:"errors"`
	ProcessingTimeMS int64                      `json:"processing_time_ms"`
}

// Failed reports whether the run ended in the failed state
func (r *Result) Failed() bool {
	return r.Status == StateFailed
}
