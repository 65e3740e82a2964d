package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

const (
	neutralScore     = 50.0
	highConfidence   = 0.75
	mediumConfidence = 0.5
)

// PillarScorer scores pillars from the signal registry
type PillarScorer struct {
	defs []PillarDefinition
}

// NewPillarScorer creates a scorer over the given definitions
func NewPillarScorer(defs []PillarDefinition) *PillarScorer {
	return &PillarScorer{defs: defs}
}

// ScoreAll scores every pillar concurrently. Each pillar reads the shared
// read-only registry and writes only its own result slot; results and issues
// are merged in definition order once all pillars finish.
func (s *PillarScorer) ScoreAll(ctx context.Context, reg *signals.Registry, category string, table *benchmarks.Table) ([]PillarResult, []errors.Issue, error) {
	results := make([]PillarResult, len(s.defs))
	perPillar := make([][]errors.Issue, len(s.defs))

	g, gctx := errgroup.WithContext(ctx)
	for i, def := range s.defs {
		i, def := i, def
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], perPillar[i] = s.ScorePillar(def, reg, category, table)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("pillar scoring: %w", err)
	}

	var issues []errors.Issue
	for _, is := range perPillar {
		issues = append(issues, is...)
	}
	return results, issues, nil
}

// ScorePillar computes one pillar. With no matching signals the pillar is
// neutral (50) and LOW confidence.
func (s *PillarScorer) ScorePillar(def PillarDefinition, reg *signals.Registry, category string, table *benchmarks.Table) (PillarResult, []errors.Issue) {
	var (
		issues        []errors.Issue
		contributions []Contribution
		names         []string
		total         float64
		weightSum     float64
		confidences   []float64
	)
	breakdown := make(map[signals.Layer]float64)

	for _, t := range def.Targets {
		sig, ok := reg.Get(t.Name)
		if !ok {
			continue
		}

		normalized := clip(sig.Value, 0, 100)
		if t.Direction == Negative {
			normalized = 100 - normalized
		}
		weighted := normalized * t.Weight

		contributions = append(contributions, Contribution{
			Signal:       t.Name,
			Layer:        t.Layer,
			Direction:    t.Direction,
			RawValue:     sig.Value,
			Normalized:   normalized,
			Weight:       t.Weight,
			Contribution: weighted,
			Confidence:   sig.Confidence,
		})
		names = append(names, t.Name)
		breakdown[t.Layer] += weighted
		total += weighted
		weightSum += t.Weight
		confidences = append(confidences, sig.Confidence)
	}

	if len(contributions) < def.MinSignalCount {
		issues = append(issues, errors.NewIssue(errors.KindInsufficientCoverage,
			"%s: Only %d/%d signals available. Score degraded.", def.Name, len(contributions), def.MinSignalCount))
	}

	score := neutralScore
	if len(contributions) > 0 && weightSum > 0 {
		score = total / weightSum
	}
	score = clip(score, 0, 100)

	completeness := 0.0
	if len(def.Targets) > 0 {
		completeness = float64(len(contributions)) / float64(len(def.Targets))
	}

	layersWithData := 0
	for _, l := range signals.Layers {
		for _, c := range contributions {
			if c.Layer == l {
				layersWithData++
				break
			}
		}
	}

	confScore, level, reason := pillarConfidence(len(contributions), completeness, layersWithData, mean(confidences))

	vs := score - pillarBenchmark(def, category, table)

	for l, v := range breakdown {
		breakdown[l] = round3(v)
	}

	result := PillarResult{
		Name:                def.Name,
		Score:               round1(score),
		ConfidenceLevel:     level,
		ConfidenceScore:     round3(confScore),
		ConfidenceReason:    reason,
		ContributingSignals: names,
		Contributions:       contributions,
		LayerBreakdown:      breakdown,
		DataCompleteness:    round3(completeness),
		VsCategoryAvg:       round1(vs),
	}
	if result.ContributingSignals == nil {
		result.ContributingSignals = []string{}
		result.Contributions = []Contribution{}
	}
	result.Explanation = explainPillar(def.Name, score, contributions, vs)

	return result, issues
}

func pillarConfidence(matched int, completeness float64, layersWithData int, meanConf float64) (float64, ConfidenceLevel, string) {
	if matched == 0 {
		return 0, ConfidenceLow, "No signals available"
	}

	score := completeness*0.4 + (float64(layersWithData)/float64(len(signals.Layers)))*0.3 + meanConf*0.3
	score = clip(score, 0, 1)

	switch {
	case score >= highConfidence:
		return score, ConfidenceHigh, "Strong data from all three layers"
	case score >= mediumConfidence:
		return score, ConfidenceMedium, fmt.Sprintf("Partial data (%.0f%% signals available)", completeness*100)
	default:
		return score, ConfidenceLow, fmt.Sprintf("Insufficient data (%.0f%% signals, %d/3 layers)", completeness*100, layersWithData)
	}
}

func pillarBenchmark(def PillarDefinition, category string, table *benchmarks.Table) float64 {
	if v, ok := table.PillarAverage(def.Name); ok {
		return v
	}
	if v, ok := def.BenchmarkByCategory[strings.ToLower(category)]; ok {
		return v
	}
	return benchmarks.DefaultPillarAverage
}

func explainPillar(name string, score float64, contributions []Contribution, vs float64) PillarExplanation {
	sorted := append([]Contribution(nil), contributions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Contribution > sorted[j].Contribution
	})

	var drivers []string
	for i := 0; i < len(sorted) && i < 3; i++ {
		if sorted[i].Normalized >= 60 {
			drivers = append(drivers, fmt.Sprintf("%s: %.0f (strong)", titleize(sorted[i].Signal), sorted[i].RawValue))
		}
	}

	var detractors []string
	for i := max(0, len(sorted)-3); i < len(sorted); i++ {
		if sorted[i].Normalized < 40 {
			detractors = append(detractors, fmt.Sprintf("%s: %.0f (weak)", titleize(sorted[i].Signal), sorted[i].RawValue))
		}
	}

	fixFirst := "No critical issues identified"
	impact := 0.0
	if len(detractors) > 0 {
		target := sorted[len(sorted)-1]
		fixFirst = "Improve " + strings.ReplaceAll(target.Signal, "_", " ")
		impact = math.Min(15, (60-target.Normalized)*target.Weight)
	}

	if len(drivers) == 0 {
		drivers = []string{"No standout positive signals"}
	}
	if len(detractors) == 0 {
		detractors = []string{"No major detractors"}
	}

	rating := "Needs attention"
	switch {
	case score >= 75:
		rating = "Strong"
	case score >= 60:
		rating = "Good"
	case score >= 45:
		rating = "Average"
	}

	direction := "above"
	if vs < 0 {
		direction = "below"
	}

	return PillarExplanation{
		Drivers:           drivers,
		Detractors:        detractors,
		FixFirst:          fixFirst,
		ExpectedFixImpact: round1(impact),
		BoardroomSummary: fmt.Sprintf("%s %s (%.0f/100). %.0f pts %s category average.",
			rating, strings.ReplaceAll(name, "_", " "), score, math.Abs(vs), direction),
	}
}

// titleize turns "cta_prominence" into "Cta Prominence"
func titleize(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
