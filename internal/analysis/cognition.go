package analysis

import (
	"math"

	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

// Cognition is the output of the attention and processing simulation
type Cognition struct {
	Signals       signals.LayerReadings `json:"signals"`
	FirstFixation string                `json:"first_fixation"`
	LoadRating    string                `json:"cognitive_load_rating"`
}

// fixationSalience scores the element predicted to catch the first look
var fixationSalience = map[string]float64{
	"face":         85,
	"product":      75,
	"logo":         65,
	"center_focal": 50,
}

// SimulateCognition derives cognitive-layer signals from measured values.
// Missing inputs fall back to typical mid-range values.
func SimulateCognition(values map[string]float64) Cognition {
	get := func(name string, def float64) float64 {
		if v, ok := values[name]; ok && !math.IsNaN(v) {
			return v
		}
		return def
	}

	load := cognitiveLoad(get)
	fixation := firstFixation(get)

	out := signals.LayerReadings{
		"cognitive_load":             {Value: load, Unit: UnitScore, Confidence: 0.7},
		"attention_capture":          {Value: attentionCapture(get), Unit: UnitScore, Confidence: 0.75},
		"visual_hierarchy_clarity":   {Value: visualHierarchy(get), Unit: UnitScore, Confidence: 0.7},
		"scan_path_efficiency":       {Value: scanEfficiency(get), Unit: UnitScore, Confidence: 0.65},
		"memory_encoding_likelihood": {Value: memoryEncoding(get), Unit: UnitScore, Confidence: 0.6},
		"processing_friction":        {Value: processingFriction(get, load), Unit: UnitScore, Confidence: 0.7},
		"first_fixation_element":     {Value: fixationSalience[fixation], Unit: UnitScore, Confidence: 0.6},
	}

	rating := "high"
	switch {
	case load < 35:
		rating = "low"
	case load < 65:
		rating = "optimal"
	}

	return Cognition{Signals: out, FirstFixation: fixation, LoadRating: rating}
}

// UnitScore is the unit attached to simulated 0-100 scores
const UnitScore = "score_0_100"

type lookup func(name string, def float64) float64

func capped(x, limit float64) float64 {
	return math.Min(x/limit, 1) * 100
}

// fraction accepts either a 0-1 share or an already scaled 0-100 value
func fraction(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	return clip(v, 0, 1)
}

func cognitiveLoad(get lookup) float64 {
	load := capped(get("element_count", 10), 20)*0.2 +
		capped(get("text_area_percentage", 10), 30)*0.2 +
		get("clutter_index", 30)*0.25 +
		capped(get("visual_entropy", 5), 8)*0.15 +
		capped(get("word_count", 20), 50)*0.2
	return clip(load, 0, 100)
}

func attentionCapture(get lookup) float64 {
	faces := math.Min(get("face_count", 0), 3) / 3 * 100
	score := capped(get("contrast_rms", 40), 60)*0.25 +
		capped(get("saturation_mean", 100), 150)*0.2 +
		capped(get("saliency_mean", 50), 100)*0.35 +
		faces*0.2
	return clip(score, 0, 100)
}

func visualHierarchy(get lookup) float64 {
	font := capped(get("font_size_variance", 0), 500)
	saliency := capped(get("saliency_concentration", 1000), 3000)
	center := math.Min(math.Max(get("center_weight_ratio", 1.0)-0.5, 0)*2, 1) * 100
	return clip(font*0.3+saliency*0.4+center*0.3, 0, 100)
}

func scanEfficiency(get lookup) float64 {
	clutter := math.Max(0, 100-get("clutter_index", 30))
	return clip(get("rule_of_thirds_alignment", 50)*0.3+get("quadrant_balance", 50)*0.3+clutter*0.4, 0, 100)
}

func memoryEncoding(get lookup) float64 {
	faces := math.Min(get("face_count", 0), 2) / 2 * 100
	emotion := fraction(get("positive_expression", 0)) * 100
	story := fraction(get("narrative_present", 0)) * get("story_clarity", 50)

	colors := get("color_count", 4)
	colorScore := 50.0
	if colors >= 2 && colors <= 5 {
		colorScore = 100
	}

	return clip(faces*0.3+emotion*0.2+story*0.3+colorScore*0.2, 0, 100)
}

func processingFriction(get lookup, load float64) float64 {
	contrast := math.Max(0, 100-get("text_contrast_ratio", 4)/7*100)
	noise := capped(get("noise_level", 10), 20)
	return clip(contrast*0.3+noise*0.3+load*0.4, 0, 100)
}

func firstFixation(get lookup) string {
	switch {
	case get("face_count", 0) > 0:
		return "face"
	case get("product_prominence", 0) > 70:
		return "product"
	case get("logo_visible", 0) > 0 && get("saliency_centrality", 50) < 40:
		return "logo"
	default:
		return "center_focal"
	}
}
