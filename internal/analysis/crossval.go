package analysis

import (
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

// DefaultCrossValidationThreshold is the largest tolerated gap, in points,
// between deterministic and AI readings of the same pillar
const DefaultCrossValidationThreshold = 25.0

// CrossValidate compares, per pillar, the mean normalized value of the
// deterministic contributors with that of the perceptual and cognitive
// contributors. Pillars missing either side are skipped.
func CrossValidate(pillars []PillarResult, threshold float64) []string {
	var contradictions []string

	for _, p := range pillars {
		var detVals, aiVals []float64
		for _, c := range p.Contributions {
			if c.Layer == signals.LayerDeterministic {
				detVals = append(detVals, c.Normalized)
			} else {
				aiVals = append(aiVals, c.Normalized)
			}
		}
		if len(detVals) == 0 || len(aiVals) == 0 {
			continue
		}

		gap := math.Abs(mean(detVals) - mean(aiVals))
		if gap > threshold {
			contradictions = append(contradictions, fmt.Sprintf(
				"%s: deterministic and AI signals diverge by %.0f pts. Review manually.", p.Name, gap))
		}
	}

	return contradictions
}
