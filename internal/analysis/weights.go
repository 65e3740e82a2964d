package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

// WeightSet maps pillar name to weight
type WeightSet map[string]float64

// Sum adds the weights in key order so the result is reproducible
func (w WeightSet) Sum() float64 {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := 0.0
	for _, k := range keys {
		s += w[k]
	}
	return s
}

// Normalized returns a copy scaled to sum to 1
func (w WeightSet) Normalized() WeightSet {
	total := w.Sum()
	out := make(WeightSet, len(w))
	for k, v := range w {
		if total > 0 {
			out[k] = v / total
		}
	}
	return out
}

func (w WeightSet) max() float64 {
	peak := 0.0
	for _, v := range w {
		if v > peak {
			peak = v
		}
	}
	return peak
}

func (w WeightSet) clone() WeightSet {
	out := make(WeightSet, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// DefaultBaseWeights is the context-free pillar weighting
var DefaultBaseWeights = WeightSet{
	PillarAttention: 0.18,
	PillarBrand:     0.15,
	PillarMessage:   0.20,
	PillarEmotion:   0.15,
	PillarCultural:  0.15,
	PillarAction:    0.17,
}

// DefaultFunnelModifiers multiply base weights per funnel stage
var DefaultFunnelModifiers = map[string]WeightSet{
	"awareness":     {PillarAttention: 1.3, PillarAction: 0.7},
	"consideration": {PillarMessage: 1.2, PillarEmotion: 1.2},
	"conversion":    {PillarAction: 1.5, PillarMessage: 1.2, PillarAttention: 0.8},
}

// DefaultPlatformModifiers multiply base weights per platform
var DefaultPlatformModifiers = map[string]WeightSet{
	"instagram": {PillarAttention: 1.3, PillarEmotion: 1.2},
	"youtube":   {PillarEmotion: 1.3, PillarBrand: 1.1},
	"facebook":  {PillarMessage: 1.2, PillarAction: 1.1},
	"search":    {PillarMessage: 1.3, PillarAction: 1.3, PillarEmotion: 0.7},
}

// WeightAdjuster derives context-specific pillar weights
type WeightAdjuster struct {
	base     WeightSet
	funnel   map[string]WeightSet
	platform map[string]WeightSet
}

// NewWeightAdjuster creates an adjuster with the default tables
func NewWeightAdjuster() *WeightAdjuster {
	return &WeightAdjuster{
		base:     DefaultBaseWeights,
		funnel:   DefaultFunnelModifiers,
		platform: DefaultPlatformModifiers,
	}
}

// Adjust applies overrides, then the funnel and platform modifiers, and
// renormalizes to sum 1. Unknown stages and platforms apply no modifier.
func (a *WeightAdjuster) Adjust(ctx Context, overrides map[string]float64) (WeightSet, []errors.Issue) {
	var issues []errors.Issue
	weights := a.base.clone()

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, pillar := range keys {
		v := overrides[pillar]
		if _, known := weights[pillar]; !known {
			issues = append(issues, errors.NewIssue(errors.KindMalformedUpstream,
				"Weight override for unknown pillar %q ignored", pillar))
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			issues = append(issues, errors.NewIssue(errors.KindMalformedUpstream,
				"Invalid weight override %v for %s ignored", v, pillar))
			continue
		}
		weights[pillar] = v
	}

	// Largest weight becomes 1 so modifiers and the sum stay finite
	if peak := weights.max(); peak > 0 {
		for k, v := range weights {
			weights[k] = v / peak
		}
	}

	for pillar, mod := range a.funnel[strings.ToLower(ctx.FunnelStage)] {
		if _, ok := weights[pillar]; ok {
			weights[pillar] *= mod
		}
	}
	for pillar, mod := range a.platform[strings.ToLower(ctx.Platform)] {
		if _, ok := weights[pillar]; ok {
			weights[pillar] *= mod
		}
	}

	if total := weights.Sum(); total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		issues = append(issues, errors.NewIssue(errors.KindMalformedUpstream,
			"Weight overrides leave no usable weight; using base weights"))
		weights = a.base.clone()
	}

	return weights.Normalized(), issues
}
