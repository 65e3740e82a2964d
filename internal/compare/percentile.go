package compare

import (
	"math"

	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
)

const (
	minPercentile = 1.0
	maxPercentile = 99.0
)

// Percentile places a 0-100 score in a category distribution by linear
// interpolation through (0,1), (p25,25), (p50,50), (p75,75) and (100,99).
// Quartiles that are not strictly increasing inside (0,100) carry no
// usable shape; the score itself is then used as the placement.
func Percentile(score float64, q benchmarks.Quartiles) float64 {
	if math.IsNaN(score) {
		return minPercentile
	}
	if !(0 < q.P25 && q.P25 < q.P50 && q.P50 < q.P75 && q.P75 < 100) {
		return round1(clamp(score))
	}

	xs := []float64{0, q.P25, q.P50, q.P75, 100}
	ys := []float64{minPercentile, 25, 50, 75, maxPercentile}

	switch {
	case score <= xs[0]:
		return minPercentile
	case score >= xs[len(xs)-1]:
		return maxPercentile
	}

	for i := 1; i < len(xs); i++ {
		if score <= xs[i] {
			t := (score - xs[i-1]) / (xs[i] - xs[i-1])
			return round1(clamp(ys[i-1] + t*(ys[i]-ys[i-1])))
		}
	}
	return maxPercentile
}

func clamp(v float64) float64 {
	return math.Min(maxPercentile, math.Max(minPercentile, v))
}
