package types

import (
	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/compare"
	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
	"github.com/ZanzyTHEbar/creative-scorer/internal/validation"
)

// ScoreRequest scores pre-measured signals without calling collaborators
type ScoreRequest struct {
	Signals         signals.Input      `json:"signals"`
	Context         analysis.Context   `json:"context"`
	WeightOverrides map[string]float64 `json:"weight_overrides,omitempty"`
}

// ValidateRequest runs the anti-hallucination checks on a signal set
type ValidateRequest struct {
	Signals signals.Input `json:"signals"`
}

// ValidateResponse is the validator verdict plus preprocessing findings
type ValidateResponse struct {
	validation.Result
	Issues []errors.Issue `json:"issues"`
}

// DifferentiationRequest analyzes copy text against the rule set
type DifferentiationRequest struct {
	Text      string        `json:"text"`
	SceneType string        `json:"scene_type,omitempty"`
	Signals   signals.Input `json:"signals"`
}

// CompareSide is one creative in a comparison: either raw signals to score
// or an already scored result
type CompareSide struct {
	Signals *signals.Input             `json:"signals,omitempty"`
	Result  *analysis.FinalScoreResult `json:"result,omitempty"`
}

// CompareRequest compares two creatives in one context
type CompareRequest struct {
	A       CompareSide      `json:"a"`
	B       CompareSide      `json:"b"`
	Context analysis.Context `json:"context"`
}

// CompareResponse carries the comparison and both scored results
type CompareResponse struct {
	Comparison compare.Result            `json:"comparison"`
	A          analysis.FinalScoreResult `json:"a"`
	B          analysis.FinalScoreResult `json:"b"`
}

// PercentileRequest places a score in a category distribution. Quartiles
// overrides the stored distribution.
type PercentileRequest struct {
	Score     *float64              `json:"score" binding:"required"`
	Category  string                `json:"category"`
	Quartiles *benchmarks.Quartiles `json:"quartiles,omitempty"`
}

// PercentileResponse is the placement of a score
type PercentileResponse struct {
	Score      float64              `json:"score"`
	Percentile float64              `json:"percentile"`
	Category   string               `json:"category,omitempty"`
	Quartiles  benchmarks.Quartiles `json:"quartiles"`
	Source     string               `json:"source"`
}

// HealthResponse is the /health payload
type HealthResponse struct {
	Status        string                 `json:"status"`
	Timestamp     string                 `json:"timestamp"`
	Version       string                 `json:"version"`
	Collaborators interface{}            `json:"collaborators"`
	Breakers      map[string]interface{} `json:"circuit_breakers"`
	Redis         map[string]interface{} `json:"redis"`
	Database      map[string]interface{} `json:"database,omitempty"`
}
