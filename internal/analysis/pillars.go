package analysis

import "github.com/ZanzyTHEbar/creative-scorer/internal/signals"

const (
	PillarAttention = "attention_capture"
	PillarBrand     = "brand_presence"
	PillarMessage   = "message_clarity"
	PillarEmotion   = "emotional_resonance"
	PillarCultural  = "cultural_relevance"
	PillarAction    = "action_motivation"
)

// PillarNames lists the pillars in reporting order
var PillarNames = []string{
	PillarAttention,
	PillarBrand,
	PillarMessage,
	PillarEmotion,
	PillarCultural,
	PillarAction,
}

// TargetSignal is one signal a pillar reads
type TargetSignal struct {
	Name      string        `json:"name" yaml:"name"`
	Weight    float64       `json:"weight" yaml:"weight"`
	Layer     signals.Layer `json:"layer" yaml:"layer"`
	Direction Direction     `json:"direction" yaml:"direction"`
}

// PillarDefinition declares how a pillar is scored
type PillarDefinition struct {
	Name                string             `json:"name" yaml:"name"`
	Description         string             `json:"description" yaml:"description"`
	Targets             []TargetSignal     `json:"target_signals" yaml:"target_signals"`
	MinSignalCount      int                `json:"min_signal_count" yaml:"min_signal_count"`
	BenchmarkByCategory map[string]float64 `json:"benchmark_by_category" yaml:"benchmark_by_category"`
}

func det(name string, w float64) TargetSignal {
	return TargetSignal{Name: name, Weight: w, Layer: signals.LayerDeterministic, Direction: Positive}
}

func per(name string, w float64) TargetSignal {
	return TargetSignal{Name: name, Weight: w, Layer: signals.LayerPerceptual, Direction: Positive}
}

func cog(name string, w float64) TargetSignal {
	return TargetSignal{Name: name, Weight: w, Layer: signals.LayerCognitive, Direction: Positive}
}

func inverted(t TargetSignal) TargetSignal {
	t.Direction = Negative
	return t
}

// DefaultPillars returns the built-in pillar definitions
func DefaultPillars() []PillarDefinition {
	return []PillarDefinition{
		{
			Name:        PillarAttention,
			Description: "Ability to stop the scroll and capture initial attention",
			Targets: []TargetSignal{
				det("contrast_rms", 0.12),
				det("saturation_mean", 0.08),
				det("saliency_concentration", 0.15),
				det("edge_density", 0.08),
				per("face_count", 0.15),
				inverted(per("scene_complexity", 0.08)),
				per("visual_interest", 0.12),
				cog("attention_capture", 0.12),
				cog("first_fixation_element", 0.10),
			},
			MinSignalCount:      5,
			BenchmarkByCategory: map[string]float64{"fmcg": 65, "tech": 60, "fashion": 70},
		},
		{
			Name:        PillarBrand,
			Description: "Brand visibility, recognition and integration",
			Targets: []TargetSignal{
				per("logo_visible", 0.20),
				det("logo_area_percentage", 0.15),
				det("brand_mention_count", 0.12),
				per("product_visible", 0.18),
				per("product_prominence", 0.15),
				cog("brand_integration_score", 0.20),
			},
			MinSignalCount:      4,
			BenchmarkByCategory: map[string]float64{"fmcg": 70, "tech": 60, "fashion": 55},
		},
		{
			Name:        PillarMessage,
			Description: "How quickly and clearly the message is understood",
			Targets: []TargetSignal{
				det("text_contrast_ratio", 0.12),
				det("font_size_variance", 0.08),
				det("white_space_percentage", 0.10),
				inverted(det("word_count", 0.08)),
				per("copy_readability", 0.15),
				cog("claim_specificity", 0.18),
				inverted(cog("cognitive_load", 0.15)),
				cog("visual_hierarchy_clarity", 0.14),
			},
			MinSignalCount:      5,
			BenchmarkByCategory: map[string]float64{"fmcg": 68, "tech": 72, "fashion": 58},
		},
		{
			Name:        PillarEmotion,
			Description: "Emotional engagement and memorability",
			Targets: []TargetSignal{
				per("positive_expression", 0.18),
				per("emotional_appeal", 0.20),
				per("story_clarity", 0.15),
				per("narrative_present", 0.12),
				cog("memory_encoding_likelihood", 0.20),
				cog("human_connection", 0.15),
			},
			MinSignalCount:      4,
			BenchmarkByCategory: map[string]float64{"fmcg": 62, "tech": 55, "fashion": 72},
		},
		{
			Name:        PillarCultural,
			Description: "Relevance to the target market and cultural fit",
			Targets: []TargetSignal{
				cog("india_relevance", 0.35),
				inverted(cog("cultural_sensitivity_flags", 0.25)),
				per("local_context_score", 0.20),
				cog("claim_credibility", 0.20),
			},
			MinSignalCount:      3,
			BenchmarkByCategory: map[string]float64{"fmcg": 70, "tech": 60, "fashion": 65},
		},
		{
			Name:        PillarAction,
			Description: "Likelihood of driving the desired action",
			Targets: []TargetSignal{
				det("cta_present", 0.15),
				det("cta_prominence", 0.18),
				cog("cta_clarity", 0.20),
				cog("cta_urgency", 0.12),
				det("trust_marker_count", 0.15),
				cog("value_proposition_clarity", 0.20),
			},
			MinSignalCount:      4,
			BenchmarkByCategory: map[string]float64{"fmcg": 65, "tech": 70, "fashion": 55},
		},
	}
}

// PillarIndex maps each pillar to the names of the signals it reads
func PillarIndex(defs []PillarDefinition) map[string][]string {
	index := make(map[string][]string, len(defs))
	for _, d := range defs {
		names := make([]string, 0, len(d.Targets))
		for _, t := range d.Targets {
			names = append(names, t.Name)
		}
		index[d.Name] = names
	}
	return index
}
