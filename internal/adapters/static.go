package adapters

import (
	"context"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/orchestrator"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

// StaticSource serves fixed readings. The CLI uses it to replay recorded
// collaborator output through the orchestrator.
type StaticSource struct {
	Input      signals.Input
	Text       string
	SceneType  string
	Summary    string
	TokensUsed map[signals.Layer]int
}

// NewStaticSource creates a source replaying in
func NewStaticSource(in signals.Input, text string) *StaticSource {
	return &StaticSource{Input: in, Text: text, TokensUsed: map[signals.Layer]int{}}
}

// Measure implements orchestrator.MeasurementSource
func (s *StaticSource) Measure(ctx context.Context, _ orchestrator.Creative) (orchestrator.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return orchestrator.Measurement{}, err
	}
	return orchestrator.Measurement{
		Signals:   copyReadings(s.Input.Deterministic),
		Text:      s.Text,
		SceneType: s.SceneType,
	}, nil
}

// Perceive implements orchestrator.PerceptionSource
func (s *StaticSource) Perceive(ctx context.Context, _ orchestrator.Creative) (orchestrator.LayerOutput, error) {
	return s.layer(ctx, signals.LayerPerceptual)
}

// Reason implements orchestrator.ReasoningSource
func (s *StaticSource) Reason(ctx context.Context, _ string, _ analysis.Context) (orchestrator.LayerOutput, error) {
	return s.layer(ctx, signals.LayerCognitive)
}

func (s *StaticSource) layer(ctx context.Context, l signals.Layer) (orchestrator.LayerOutput, error) {
	if err := ctx.Err(); err != nil {
		return orchestrator.LayerOutput{}, err
	}
	out := orchestrator.LayerOutput{
		Signals:    copyReadings(s.Input.Layer(l)),
		TokensUsed: s.TokensUsed[l],
	}
	if l == signals.LayerPerceptual {
		out.Summary = s.Summary
		out.SceneType = s.SceneType
	}
	return out, nil
}

func copyReadings(in signals.LayerReadings) signals.LayerReadings {
	out := make(signals.LayerReadings, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
