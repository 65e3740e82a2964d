package database

// overallSignal is the signal_benchmarks key of the overall score distribution
const overallSignal = ""

// WeightOverride is one stored pillar weight. Empty scope fields match any
// category, platform or funnel stage.
type WeightOverride struct {
	Category    string  `json:"category,omitempty" yaml:"category,omitempty"`
	Platform    string  `json:"platform,omitempty" yaml:"platform,omitempty"`
	FunnelStage string  `json:"funnel_stage,omitempty" yaml:"funnel_stage,omitempty"`
	Pillar      string  `json:"pillar" yaml:"pillar"`
	Weight      float64 `json:"weight" yaml:"weight"`
}

// specificity ranks how narrowly an override is scoped. Category outranks
// platform, which outranks funnel stage.
func (w WeightOverride) specificity() int {
	s := 0
	if w.Category != "" {
		s += 4
	}
	if w.Platform != "" {
		s += 2
	}
	if w.FunnelStage != "" {
		s++
	}
	return s
}
