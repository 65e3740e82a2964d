package analysis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

// uniformInput supplies every pillar target at its declared layer with value v
func uniformInput(v float64) signals.Input {
	in := signals.Input{
		Deterministic: signals.LayerReadings{},
		Perceptual:    signals.LayerReadings{},
		Cognitive:     signals.LayerReadings{},
	}
	for _, d := range DefaultPillars() {
		for _, t := range d.Targets {
			switch t.Layer {
			case signals.LayerDeterministic:
				in.Deterministic[t.Name] = signals.Bare(v)
			case signals.LayerPerceptual:
				in.Perceptual[t.Name] = signals.Bare(v)
			case signals.LayerCognitive:
				in.Cognitive[t.Name] = signals.Bare(v)
			}
		}
	}
	return in
}

func sampleInput() signals.Input {
	return signals.Input{
		Deterministic: signals.LayerReadings{
			"contrast_rms":           signals.Bare(48),
			"saturation_mean":        signals.Bare(62),
			"saliency_concentration": signals.Bare(55),
			"edge_density":           signals.Bare(35),
			"text_contrast_ratio":    signals.Bare(70),
			"white_space_percentage": signals.Bare(18),
			"word_count":             signals.Bare(24),
			"cta_present":            {Value: 1, Unit: signals.UnitBoolean, Confidence: 1},
			"cta_prominence":         signals.Bare(42),
			"trust_marker_count":     signals.Bare(20),
			"logo_area_percentage":   signals.Bare(30),
		},
		Perceptual: signals.LayerReadings{
			"face_count":          {Value: 60, Unit: signals.UnitScore, Confidence: 0.8},
			"logo_visible":        {Value: 1, Unit: signals.UnitBoolean, Confidence: 0.9},
			"product_visible":     {Value: 1, Unit: signals.UnitBoolean, Confidence: 0.9},
			"emotional_appeal":    {Value: 58, Unit: signals.UnitScore, Confidence: 0.7},
			"story_clarity":       {Value: 45, Unit: signals.UnitScore, Confidence: 0.7},
			"local_context_score": {Value: 66, Unit: signals.UnitScore, Confidence: 0.7},
		},
		Cognitive: signals.LayerReadings{
			"claim_specificity":         {Value: 35, Unit: signals.UnitScore, Confidence: 0.6},
			"cognitive_load":            {Value: 55, Unit: signals.UnitScore, Confidence: 0.7},
			"india_relevance":           {Value: 40, Unit: signals.UnitScore, Confidence: 0.6},
			"cta_clarity":               {Value: 72, Unit: signals.UnitScore, Confidence: 0.6},
			"value_proposition_clarity": {Value: 50, Unit: signals.UnitScore, Confidence: 0.6},
		},
	}
}

func TestWeightAdjuster_SumsToOne(t *testing.T) {
	adjuster := NewWeightAdjuster()
	stages := []string{"awareness", "consideration", "conversion", "retention", ""}
	platforms := []string{"instagram", "youtube", "facebook", "search", "tiktok", ""}

	for _, stage := range stages {
		for _, platform := range platforms {
			weights, issues := adjuster.Adjust(Context{FunnelStage: stage, Platform: platform}, nil)
			assert.Empty(t, issues)
			assert.InDelta(t, 1.0, weights.Sum(), 1e-6, "stage=%q platform=%q", stage, platform)
			assert.Len(t, weights, len(PillarNames))
		}
	}
}

func TestWeightAdjuster_Modifiers(t *testing.T) {
	adjuster := NewWeightAdjuster()

	neutral, _ := adjuster.Adjust(Context{}, nil)
	assert.InDelta(t, 0.20, neutral[PillarMessage], 1e-9)

	conversion, _ := adjuster.Adjust(Context{FunnelStage: "Conversion", Platform: "search"}, nil)
	assert.Greater(t, conversion[PillarAction], neutral[PillarAction])
	assert.Less(t, conversion[PillarEmotion], neutral[PillarEmotion])
}

func TestWeightAdjuster_Overrides(t *testing.T) {
	adjuster := NewWeightAdjuster()

	tests := []struct {
		name      string
		overrides map[string]float64
		issues    int
		check     func(t *testing.T, w WeightSet)
	}{
		{
			name:      "override replaces base weight",
			overrides: map[string]float64{PillarCultural: 0},
			check: func(t *testing.T, w WeightSet) {
				assert.Equal(t, 0.0, w[PillarCultural])
			},
		},
		{
			name:      "negative and unknown overrides are ignored",
			overrides: map[string]float64{PillarBrand: -1, "virality": 0.5},
			issues:    2,
			check: func(t *testing.T, w WeightSet) {
				assert.InDelta(t, 0.15, w[PillarBrand], 1e-9)
			},
		},
		{
			name: "all-zero overrides fall back to base",
			overrides: map[string]float64{
				PillarAttention: 0, PillarBrand: 0, PillarMessage: 0,
				PillarEmotion: 0, PillarCultural: 0, PillarAction: 0,
			},
			issues: 1,
			check: func(t *testing.T, w WeightSet) {
				assert.InDelta(t, 0.18, w[PillarAttention], 1e-9)
			},
		},
		{
			name:      "huge finite overrides do not overflow",
			overrides: map[string]float64{PillarAttention: 1e308, PillarBrand: 1e308},
			check: func(t *testing.T, w WeightSet) {
				assert.InDelta(t, 0.5, w[PillarAttention], 1e-9)
				assert.InDelta(t, 0.5, w[PillarBrand], 1e-9)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights, issues := adjuster.Adjust(Context{}, tt.overrides)
			assert.Len(t, issues, tt.issues)
			assert.InDelta(t, 1.0, weights.Sum(), 1e-6)
			tt.check(t, weights)
		})
	}
}

func TestCrossValidate(t *testing.T) {
	scorer := NewPillarScorer(DefaultPillars())
	reg := signals.FromSignals(
		sig("contrast_rms", 90, signals.LayerDeterministic),
		sig("saliency_concentration", 90, signals.LayerDeterministic),
		sig("face_count", 10, signals.LayerPerceptual),
		sig("logo_visible", 100, signals.LayerPerceptual),
	)
	pillars, _, err := scorer.ScoreAll(context.Background(), reg, "", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"attention_capture: deterministic and AI signals diverge by 80 pts. Review manually.",
	}, CrossValidate(pillars, DefaultCrossValidationThreshold))

	assert.Empty(t, CrossValidate(pillars, 85))
}

func TestAggregate_EmptyRegistry(t *testing.T) {
	report, err := NewAnalyzer(DefaultOptions()).Score(context.Background(), Request{})
	require.NoError(t, err)
	result := report.Result

	assert.Equal(t, 50.0, result.OverallScore)
	assert.Equal(t, ConfidenceLow, result.ConfidenceLevel)
	assert.Equal(t, Band{Low: 40, High: 60}, result.ConfidenceBand)
	assert.Len(t, result.Pillars, len(PillarNames))
	assert.Empty(t, result.Contradictions)
	assert.NotEmpty(t, result.Warnings)
	assert.Empty(t, report.Recommendations)
}

func TestAggregate_UniformInputIsHighConfidence(t *testing.T) {
	report, err := NewAnalyzer(DefaultOptions()).Score(context.Background(), Request{Signals: uniformInput(50)})
	require.NoError(t, err)
	result := report.Result

	assert.InDelta(t, 50.0, result.OverallScore, 1e-9)
	assert.Equal(t, ConfidenceHigh, result.ConfidenceLevel)
	assert.InDelta(t, 0.943, result.DataQualityScore, 1e-3)
	assert.LessOrEqual(t, result.ConfidenceBand.Low, result.OverallScore)
	assert.GreaterOrEqual(t, result.ConfidenceBand.High, result.OverallScore)
}

func TestScore_HugeWeightOverrides(t *testing.T) {
	report, err := NewAnalyzer(DefaultOptions()).Score(context.Background(), Request{
		Signals:         uniformInput(50),
		WeightOverrides: map[string]float64{PillarAttention: 1e308, PillarBrand: 1e308},
	})
	require.NoError(t, err)
	result := report.Result

	assert.InDelta(t, 50.0, result.OverallScore, 1e-6)
	assert.Greater(t, result.ConfidenceBand.High, 0.0)
}

func TestAggregate_ScoresStayInRange(t *testing.T) {
	analyzer := NewAnalyzer(DefaultOptions())

	for _, v := range []float64{-500, 0, 37, 100, 1e6} {
		report, err := analyzer.Score(context.Background(), Request{
			Signals: uniformInput(v),
			Context: Context{Category: "tech", Platform: "instagram", FunnelStage: "conversion"},
		})
		require.NoError(t, err)

		r := report.Result
		assert.GreaterOrEqual(t, r.OverallScore, 0.0)
		assert.LessOrEqual(t, r.OverallScore, 100.0)
		assert.GreaterOrEqual(t, r.ConfidenceBand.Low, 0.0)
		assert.LessOrEqual(t, r.ConfidenceBand.High, 100.0)
		assert.GreaterOrEqual(t, r.DataQualityScore, 0.0)
		assert.LessOrEqual(t, r.DataQualityScore, 1.0)
		for _, p := range r.Pillars {
			assert.GreaterOrEqual(t, p.Score, 0.0)
			assert.LessOrEqual(t, p.Score, 100.0)
		}
	}
}

func TestMergeFindings(t *testing.T) {
	report, err := NewAnalyzer(DefaultOptions()).Score(context.Background(), Request{Signals: uniformInput(50)})
	require.NoError(t, err)
	result := report.Result
	require.Equal(t, ConfidenceHigh, result.ConfidenceLevel)

	result.MergeFindings(nil, []string{"contrast_rms: 400 outside valid range [0, 100]"}, false)
	assert.Equal(t, ConfidenceMedium, result.ConfidenceLevel)
	assert.Contains(t, result.Warnings, "contrast_rms: 400 outside valid range [0, 100]")
}

func TestFunnelAndPlatformFit(t *testing.T) {
	pillars := []PillarResult{
		{Name: PillarAttention, Score: 80},
		{Name: PillarBrand, Score: 60},
		{Name: PillarMessage, Score: 52},
		{Name: PillarEmotion, Score: 48},
		{Name: PillarCultural, Score: 70},
		{Name: PillarAction, Score: 30},
	}

	assert.Equal(t, 70.0, funnelFit(pillars, "awareness"))
	assert.Equal(t, 41.0, funnelFit(pillars, "conversion"))
	assert.InDelta(t, 56.7, funnelFit(pillars, "unknown"), 1e-9)

	// attention meets 70; emotion 48/60 = 80%
	assert.Equal(t, 90.0, platformFit(pillars, "instagram"))
	assert.Equal(t, defaultPlatformFit, platformFit(pillars, "billboard"))

	best, fit := bestPlatform(pillars)
	assert.Equal(t, "instagram", best)
	assert.Equal(t, 90.0, fit)
}

func TestDecisionSummary(t *testing.T) {
	report, err := NewAnalyzer(DefaultOptions()).Score(context.Background(), Request{
		Signals: sampleInput(),
		Context: Context{Category: "fmcg", Platform: "instagram", FunnelStage: "awareness"},
	})
	require.NoError(t, err)

	summary := report.Result.DecisionSummary
	for _, key := range []string{"strongest_pillars", "weakest_pillars", "run_decision", "platform_fit", "success_rationale", "priority_improvement", "expected_uplift"} {
		assert.NotEmpty(t, summary[key], key)
	}
	assert.Contains(t, summary["platform_fit"], "Instagram")

	if len(report.Recommendations) > 0 {
		top := report.Recommendations[0]
		assert.Contains(t, summary["priority_improvement"], top.Signal)
		assert.Equal(t, 1, top.Priority)
	}
}

func TestScore_Deterministic(t *testing.T) {
	analyzer := NewAnalyzer(DefaultOptions())
	req := Request{
		Signals: sampleInput(),
		Context: Context{Category: "fmcg", Platform: "youtube", FunnelStage: "consideration"},
	}

	first, err := analyzer.Score(context.Background(), req)
	require.NoError(t, err)
	second, err := analyzer.Score(context.Background(), req)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Result, second.Result); diff != "" {
		t.Fatalf("results differ (-first +second):\n%s", diff)
	}

	a, err := json.Marshal(first.Result)
	require.NoError(t, err)
	b, err := json.Marshal(second.Result)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestScore_CarriesRegistryIssues(t *testing.T) {
	in := uniformInput(50)
	in.Cognitive["contrast_rms"] = signals.Bare(50)

	report, err := NewAnalyzer(DefaultOptions()).Score(context.Background(), Request{Signals: in})
	require.NoError(t, err)

	assert.NotEmpty(t, errors.Filter(report.Issues, errors.KindDuplicateSignal))
	assert.Contains(t, report.Result.Warnings, "contrast_rms: cognitive reading replaced deterministic reading")
}

func TestSimulateCognition(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]float64
		fixation string
		rating   string
	}{
		{
			name:     "faces draw the first look",
			values:   map[string]float64{"face_count": 2},
			fixation: "face",
			rating:   "optimal",
		},
		{
			name:     "prominent product without faces",
			values:   map[string]float64{"product_prominence": 85},
			fixation: "product",
			rating:   "optimal",
		},
		{
			name:     "off-center logo",
			values:   map[string]float64{"logo_visible": 100, "saliency_centrality": 20},
			fixation: "logo",
			rating:   "optimal",
		},
		{
			name: "cluttered wordy frame is high load",
			values: map[string]float64{
				"element_count": 40, "text_area_percentage": 45, "clutter_index": 90,
				"visual_entropy": 9, "word_count": 120,
			},
			fixation: "center_focal",
			rating:   "high",
		},
		{
			name: "sparse frame is low load",
			values: map[string]float64{
				"element_count": 2, "text_area_percentage": 3, "clutter_index": 5,
				"visual_entropy": 1, "word_count": 4,
			},
			fixation: "center_focal",
			rating:   "low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := SimulateCognition(tt.values)
			assert.Equal(t, tt.fixation, c.FirstFixation)
			assert.Equal(t, tt.rating, c.LoadRating)
			assert.Len(t, c.Signals, 7)
			for name, r := range c.Signals {
				assert.GreaterOrEqual(t, r.Value, 0.0, name)
				assert.LessOrEqual(t, r.Value, 100.0, name)
				assert.Greater(t, r.Confidence, 0.0, name)
			}
		})
	}
}

func TestSimulateCognition_DefaultLoad(t *testing.T) {
	c := SimulateCognition(nil)
	// element 50*0.2 + text 33.3*0.2 + clutter 30*0.25 + entropy 62.5*0.15 + words 40*0.2
	assert.InDelta(t, 41.54, c.Signals["cognitive_load"].Value, 0.01)
	assert.Equal(t, 0.7, c.Signals["cognitive_load"].Confidence)
}
