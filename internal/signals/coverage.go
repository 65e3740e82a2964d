package signals

import (
	"math"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

// DefaultExpected is the number of signals a fully instrumented run yields per layer
var DefaultExpected = map[Layer]int{
	LayerDeterministic: 20,
	LayerPerceptual:    10,
	LayerCognitive:     8,
}

const lowCoverageThreshold = 0.5

// CoverageReport describes how complete each layer's signal set is
type CoverageReport struct {
	ByLayer  map[Layer]float64 `json:"by_layer"`
	Observed map[Layer]int     `json:"observed"`
	Expected map[Layer]int     `json:"expected"`
	Issues   []errors.Issue    `json:"issues,omitempty"`
}

// Mean returns the average coverage over all layers
func (c CoverageReport) Mean() float64 {
	if len(Layers) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range Layers {
		sum += c.ByLayer[l]
	}
	return sum / float64(len(Layers))
}

// Coverage computes per-layer coverage against DefaultExpected
func Coverage(reg *Registry) CoverageReport {
	return CoverageWith(reg, DefaultExpected)
}

// CoverageWith computes per-layer coverage min(1, observed/expected). Layers
// under half coverage produce a warning; coverage never blocks scoring.
func CoverageWith(reg *Registry, expected map[Layer]int) CoverageReport {
	observed := reg.CountByLayer()
	report := CoverageReport{
		ByLayer:  make(map[Layer]float64, len(Layers)),
		Observed: observed,
		Expected: make(map[Layer]int, len(Layers)),
	}

	for _, l := range Layers {
		exp := expected[l]
		report.Expected[l] = exp

		cov := 1.0
		if exp > 0 {
			cov = math.Min(1, float64(observed[l])/float64(exp))
		}
		report.ByLayer[l] = cov

		if cov < lowCoverageThreshold {
			report.Issues = append(report.Issues, errors.NewIssue(errors.KindInsufficientCoverage,
				"Low %s signal coverage (%.0f%%). Score confidence reduced.", l, cov*100))
		}
	}

	return report
}
