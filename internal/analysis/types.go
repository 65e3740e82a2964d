package analysis

import "github.com/ZanzyTHEbar/creative-scorer/internal/signals"

// ConfidenceLevel is the coarse trust rating attached to a score
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Direction says whether a higher signal value is better or worse for a pillar
type Direction string

const (
	Positive Direction = "positive"
	Negative Direction = "negative"
)

// Context describes where a creative will run
type Context struct {
	Category    string `json:"category" yaml:"category"`
	Platform    string `json:"platform" yaml:"platform"`
	FunnelStage string `json:"funnel_stage" yaml:"funnel_stage"`
}

// Contribution is one matched signal's share of a pillar score
type Contribution struct {
	Signal       string        `json:"signal"`
	Layer        signals.Layer `json:"layer"`
	Direction    Direction     `json:"direction"`
	RawValue     float64       `json:"raw_value"`
	Normalized   float64       `json:"normalized_value"`
	Weight       float64       `json:"weight"`
	Contribution float64       `json:"contribution"`
	Confidence   float64       `json:"confidence"`
}

// PillarExplanation is the human-readable account of a pillar score
type PillarExplanation struct {
	Drivers           []string `json:"what_drove_this"`
	Detractors        []string `json:"what_hurt_this"`
	FixFirst          string   `json:"what_to_fix_first"`
	ExpectedFixImpact float64  `json:"expected_fix_impact"`
	BoardroomSummary  string   `json:"boardroom_summary"`
}

// PillarResult is the score of one pillar
type PillarResult struct {
	Name                string                    `json:"name"`
	Score               float64                   `json:"score"`
	ConfidenceLevel     ConfidenceLevel           `json:"confidence_level"`
	ConfidenceScore     float64                   `json:"confidence_score"`
	ConfidenceReason    string                    `json:"confidence_reason"`
	ContributingSignals []string                  `json:"contributing_signals"`
	Contributions       []Contribution            `json:"contributions"`
	LayerBreakdown      map[signals.Layer]float64 `json:"layer_breakdown"`
	DataCompleteness    float64                   `json:"data_completeness"`
	VsCategoryAvg       float64                   `json:"vs_category_avg"`
	Explanation         PillarExplanation         `json:"explanation"`
}

// Band is an uncertainty interval around the overall score
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// FinalScoreResult is the complete, auditable score of one creative
type FinalScoreResult struct {
	OverallScore     float64                 `json:"overall_score"`
	ConfidenceLevel  ConfidenceLevel         `json:"confidence_level"`
	ConfidenceBand   Band                    `json:"confidence_band"`
	Pillars          map[string]PillarResult `json:"pillars"`
	Weights          map[string]float64      `json:"weights"`
	DecisionSummary  map[string]string       `json:"decision_summary"`
	FunnelFit        float64                 `json:"funnel_fit"`
	PlatformFit      float64                 `json:"platform_fit"`
	Warnings         []string                `json:"warnings"`
	Contradictions   []string                `json:"contradictions"`
	DataQualityScore float64                 `json:"data_quality_score"`
	Context          Context                 `json:"context"`
}

func scoresByName(pillars []PillarResult) map[string]float64 {
	out := make(map[string]float64, len(pillars))
	for _, p := range pillars {
		out[p.Name] = p.Score
	}
	return out
}
