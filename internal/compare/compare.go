package compare

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
)

// DefaultThreshold is the smallest score gap treated as a real difference
const DefaultThreshold = 5.0

const (
	WinnerA = "A"
	WinnerB = "B"
	Tie     = "tie"
)

// PillarComparison is the head-to-head result for one pillar
type PillarComparison struct {
	ScoreA     float64 `json:"score_a" yaml:"score_a"`
	ScoreB     float64 `json:"score_b" yaml:"score_b"`
	Difference float64 `json:"difference" yaml:"difference"`
	Winner     string  `json:"winner" yaml:"winner"`
}

// Placement locates a score in the category distribution
type Placement struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
}

// Result is the comparison of two scored creatives
type Result struct {
	OverallWinner     string                      `json:"overall_winner" yaml:"overall_winner"`
	OverallDifference float64                     `json:"overall_difference" yaml:"overall_difference"`
	Pillars           map[string]PillarComparison `json:"pillars" yaml:"pillars"`
	PillarWinners     map[string]string           `json:"pillar_winners" yaml:"pillar_winners"`
	TradeOffs         []string                    `json:"trade_offs" yaml:"trade_offs"`
	Recommendation    string                      `json:"recommendation" yaml:"recommendation"`
	Percentiles       *Placement                  `json:"percentiles,omitempty" yaml:"percentiles,omitempty"`
}

// Engine compares scored creatives
type Engine struct {
	threshold float64
}

// NewEngine creates a comparison engine. A non-positive threshold selects
// the default.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

// Threshold returns the significance threshold in points
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Winner picks a side, or a tie when the gap is below the threshold
func (e *Engine) Winner(a, b float64) string {
	diff := a - b
	switch {
	case math.Abs(diff) < e.threshold:
		return Tie
	case diff > 0:
		return WinnerA
	default:
		return WinnerB
	}
}

// Compare compares two results pillar by pillar and overall. When table
// carries an overall distribution both scores are placed in it.
func (e *Engine) Compare(a, b *analysis.FinalScoreResult, table *benchmarks.Table) Result {
	names := pillarUnion(a.Pillars, b.Pillars)

	result := Result{
		OverallWinner:     e.Winner(a.OverallScore, b.OverallScore),
		OverallDifference: round1(a.OverallScore - b.OverallScore),
		Pillars:           make(map[string]PillarComparison, len(names)),
		PillarWinners:     make(map[string]string, len(names)),
	}

	var leadsA, leadsB []string
	for _, name := range names {
		sa, sb := pillarScore(a, name), pillarScore(b, name)
		winner := e.Winner(sa, sb)
		result.Pillars[name] = PillarComparison{
			ScoreA:     sa,
			ScoreB:     sb,
			Difference: round1(sa - sb),
			Winner:     winner,
		}
		result.PillarWinners[name] = winner

		switch winner {
		case WinnerA:
			leadsA = append(leadsA, humanize(name))
		case WinnerB:
			leadsB = append(leadsB, humanize(name))
		}
	}

	result.TradeOffs = tradeOffs(leadsA, leadsB)
	result.Recommendation = recommendation(result.OverallWinner, leadsA, leadsB)

	if table != nil && table.Overall != nil {
		result.Percentiles = &Placement{
			A: Percentile(a.OverallScore, *table.Overall),
			B: Percentile(b.OverallScore, *table.Overall),
		}
	}

	return result
}

func tradeOffs(leadsA, leadsB []string) []string {
	out := []string{}
	if len(leadsA) > 0 && len(leadsB) > 0 {
		out = append(out, fmt.Sprintf("A leads on %s while B leads on %s",
			strings.Join(leadsA, ", "), strings.Join(leadsB, ", ")))
		return out
	}
	if len(leadsA) > 0 {
		out = append(out, fmt.Sprintf("A leads on %s with no pillar where B is ahead", strings.Join(leadsA, ", ")))
	}
	if len(leadsB) > 0 {
		out = append(out, fmt.Sprintf("B leads on %s with no pillar where A is ahead", strings.Join(leadsB, ", ")))
	}
	return out
}

func recommendation(overall string, leadsA, leadsB []string) string {
	switch overall {
	case WinnerA, WinnerB:
		other := WinnerB
		if overall == WinnerB {
			other = WinnerA
		}
		if (overall == WinnerA && len(leadsB) > 0) || (overall == WinnerB && len(leadsA) > 0) {
			return fmt.Sprintf("Run %s; borrow %s's stronger elements before launch", overall, other)
		}
		return fmt.Sprintf("Run %s", overall)
	default:
		if len(leadsA) > 0 || len(leadsB) > 0 {
			return "No clear overall winner; pick by the pillar that matters most for the campaign or A/B test both"
		}
		return "Creatives perform equivalently; A/B test both"
	}
}

func pillarUnion(a, b map[string]analysis.PillarResult) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var names []string
	for _, m := range []map[string]analysis.PillarResult{a, b} {
		for name := range m {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// pillarScore treats a pillar missing from one side as neutral
func pillarScore(r *analysis.FinalScoreResult, name string) float64 {
	if p, ok := r.Pillars[name]; ok {
		return p.Score
	}
	return 50
}

func humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
