package validation

import (
	"fmt"
	"math"
	"sort"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

// Direction is the expected relation between two correlated signals
type Direction string

const (
	Positive Direction = "positive"
	Negative Direction = "negative"
)

const (
	highMark = 0.7
	lowMark  = 0.3

	minConfidence     = 0.3
	sanityPenalty     = 0.2
	contradictionCost = 0.1
	maxContradictions = 3
)

// Range is the plausible domain of a signal
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Correlation is an expected relation between two signals. For positive
// pairs Threshold is the normalized gap that must be exceeded before a
// high/low split counts.
type Correlation struct {
	A         string    `json:"a" yaml:"a"`
	B         string    `json:"b" yaml:"b"`
	Threshold float64   `json:"threshold" yaml:"threshold"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// DefaultRanges are the sanity bounds for measured signals
var DefaultRanges = map[string]Range{
	"contrast_rms":           {0, 100},
	"saturation_mean":        {0, 255},
	"white_space_percentage": {0, 100},
	"text_area_percentage":   {0, 100},
	"word_count":             {0, 500},
	"cta_prominence":         {0, 100},
	"cognitive_load":         {0, 100},
	"claim_specificity":      {0, 100},
}

// DefaultCorrelations are the signal pairs expected to move together or apart
var DefaultCorrelations = []Correlation{
	{A: "cognitive_load", B: "word_count", Threshold: 0.5, Direction: Positive},
	{A: "white_space_percentage", B: "clutter_index", Threshold: 0.5, Direction: Negative},
	{A: "contrast_rms", B: "text_contrast_ratio", Threshold: 0.3, Direction: Positive},
	{A: "cta_present", B: "cta_prominence", Threshold: 0.7, Direction: Positive},
}

// Result is the outcome of one validation pass
type Result struct {
	IsValid            bool     `json:"is_valid" yaml:"is_valid"`
	SanityPassed       bool     `json:"sanity_passed" yaml:"sanity_passed"`
	Contradictions     []string `json:"contradictions" yaml:"contradictions"`
	Warnings           []string `json:"warnings" yaml:"warnings"`
	AdjustedConfidence float64  `json:"adjusted_confidence" yaml:"adjusted_confidence"`
}

// Issues converts the findings into non-fatal issues
func (r Result) Issues() []errors.Issue {
	issues := make([]errors.Issue, 0, len(r.Warnings)+len(r.Contradictions))
	for _, w := range r.Warnings {
		issues = append(issues, errors.Issue{Kind: errors.KindSanityRangeViolation, Message: w})
	}
	for _, c := range r.Contradictions {
		issues = append(issues, errors.Issue{Kind: errors.KindContradiction, Message: c})
	}
	return issues
}

// Validator range-checks signals and looks for contradictory pairs
type Validator struct {
	ranges       map[string]Range
	correlations []Correlation
}

// NewValidator creates a validator with the default tables
func NewValidator() *Validator {
	return &Validator{ranges: DefaultRanges, correlations: DefaultCorrelations}
}

// WithRanges replaces the sanity table
func (v *Validator) WithRanges(ranges map[string]Range) *Validator {
	v.ranges = ranges
	return v
}

// WithCorrelations replaces the correlation table
func (v *Validator) WithCorrelations(correlations []Correlation) *Validator {
	v.correlations = correlations
	return v
}

// Validate checks a flat signal table
func (v *Validator) Validate(values map[string]float64) Result {
	warnings := v.sanityCheck(values)
	contradictions := v.contradictions(values)
	sane := len(warnings) == 0

	confidence := 1.0
	if !sane {
		confidence -= sanityPenalty
	}
	confidence -= contradictionCost * float64(len(contradictions))

	return Result{
		IsValid:            sane && len(contradictions) < maxContradictions,
		SanityPassed:       sane,
		Contradictions:     contradictions,
		Warnings:           warnings,
		AdjustedConfidence: math.Round(math.Max(minConfidence, confidence)*1000) / 1000,
	}
}

func (v *Validator) sanityCheck(values map[string]float64) []string {
	names := make([]string, 0, len(v.ranges))
	for name := range v.ranges {
		names = append(names, name)
	}
	sort.Strings(names)

	warnings := []string{}
	for _, name := range names {
		value, ok := values[name]
		if !ok {
			continue
		}
		r := v.ranges[name]
		if value < r.Min || value > r.Max {
			warnings = append(warnings, fmt.Sprintf("%s value (%g) outside expected range [%g, %g]", name, value, r.Min, r.Max))
		}
	}
	return warnings
}

func (v *Validator) contradictions(values map[string]float64) []string {
	found := []string{}
	for _, c := range v.correlations {
		a, okA := values[c.A]
		b, okB := values[c.B]
		if !okA || !okB {
			continue
		}
		na, nb := normalize(a), normalize(b)

		switch c.Direction {
		case Positive:
			if math.Abs(na-nb) <= c.Threshold {
				continue
			}
			switch {
			case na > highMark && nb < lowMark:
				found = append(found, fmt.Sprintf("Contradiction: %s is high (%.0f) but %s is low (%.0f)", c.A, a, c.B, b))
			case nb > highMark && na < lowMark:
				found = append(found, fmt.Sprintf("Contradiction: %s is high (%.0f) but %s is low (%.0f)", c.B, b, c.A, a))
			}
		case Negative:
			if na > highMark && nb > highMark {
				found = append(found, fmt.Sprintf("Contradiction: both %s (%.0f) and %s (%.0f) are high (expected inverse)", c.A, a, c.B, b))
			}
		}
	}
	return found
}

// normalize maps a 0-100 reading onto 0-1
func normalize(v float64) float64 {
	return math.Min(1, v/100)
}
