package signals

import (
	"math"
	"strings"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

// Preprocessor cleans raw collaborator readings before they enter the registry
type Preprocessor struct {
	// BooleanScale converts boolean-unit readings onto the 0-100 score range
	BooleanScale float64
}

// NewPreprocessor creates a preprocessor with default scaling
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{BooleanScale: 100}
}

// Normalize converts a reading into a Signal. Readings that cannot be used
// are dropped and reported as malformed upstream output.
func (p *Preprocessor) Normalize(name string, layer Layer, r Reading) (Signal, *errors.Issue) {
	if strings.TrimSpace(name) == "" {
		issue := errors.NewIssue(errors.KindMalformedUpstream, "%s layer supplied a signal with an empty name; ignored", layer)
		return Signal{}, &issue
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		issue := errors.NewIssue(errors.KindMalformedUpstream, "%s: non-finite value from %s layer; signal ignored", name, layer)
		return Signal{}, &issue
	}

	unit := r.Unit
	if unit == "" {
		unit = UnitScore
	}

	value := r.Value
	if strings.EqualFold(unit, UnitBoolean) {
		if value != 0 {
			value = 1
		}
		value *= p.BooleanScale
	}

	conf := r.Confidence
	if math.IsNaN(conf) {
		conf = 0
	}

	return Signal{
		Name:       name,
		Value:      value,
		Layer:      layer,
		Confidence: clamp(conf, 0, 1),
		Unit:       unit,
	}, nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
