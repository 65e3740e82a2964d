package recommend

import (
	"math"
	"sort"

	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
)

// Recommendation is a prioritized fix for one signal
type Recommendation struct {
	Priority        int        `json:"priority" yaml:"priority"`
	Signal          string     `json:"signal" yaml:"signal"`
	Category        string     `json:"category" yaml:"category"`
	FixText         string     `json:"fix_text" yaml:"fix_text"`
	Example         string     `json:"example" yaml:"example"`
	CurrentValue    float64    `json:"current_value" yaml:"current_value"`
	TargetValue     float64    `json:"target_value" yaml:"target_value"`
	EstimatedUplift float64    `json:"estimated_uplift" yaml:"estimated_uplift"`
	Difficulty      Difficulty `json:"difficulty" yaml:"difficulty"`
}

// Options tunes the uplift model
type Options struct {
	MaxRecommendations int
	// MinUplift drops fixes whose estimated gain is negligible
	MinUplift float64
	// SignalShare is the assumed share of a pillar one signal controls
	SignalShare float64
	// PillarShare is the assumed weight of one pillar in the overall score
	PillarShare float64
}

// DefaultOptions returns the standard uplift model
func DefaultOptions() Options {
	return Options{
		MaxRecommendations: 5,
		MinUplift:          1.0,
		SignalShare:        0.2,
		PillarShare:        0.16,
	}
}

// Engine turns weak signals into ranked fixes
type Engine struct {
	templates     map[string]Template
	pillarSignals map[string][]string
	opts          Options
}

// NewEngine creates an engine. pillarSignals maps each pillar to the signals
// it scores, so uplift is attributed only to pillars a signal feeds.
func NewEngine(pillarSignals map[string][]string, opts Options) *Engine {
	if opts.MaxRecommendations <= 0 {
		opts.MaxRecommendations = DefaultOptions().MaxRecommendations
	}
	if opts.SignalShare <= 0 {
		opts.SignalShare = DefaultOptions().SignalShare
	}
	if opts.PillarShare <= 0 {
		opts.PillarShare = DefaultOptions().PillarShare
	}
	return &Engine{
		templates:     DefaultTemplates,
		pillarSignals: pillarSignals,
		opts:          opts,
	}
}

// WithTemplates replaces the fix catalogue
func (e *Engine) WithTemplates(templates map[string]Template) *Engine {
	e.templates = templates
	return e
}

// Target returns the value a signal should reach: the category p75 when a
// benchmark exists, otherwise the template default
func (e *Engine) Target(name string, table *benchmarks.Table) float64 {
	if q, ok := table.SignalQuartiles(name); ok {
		return q.P75
	}
	if tpl, ok := e.templates[name]; ok && tpl.Target > 0 {
		return tpl.Target
	}
	return defaultTarget
}

// Generate returns at most MaxRecommendations fixes for the signals present
// in values, ranked by estimated uplift
func (e *Engine) Generate(values map[string]float64, pillarScores map[string]float64, table *benchmarks.Table) []Recommendation {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	var recs []Recommendation
	for _, name := range names {
		current, ok := values[name]
		if !ok {
			continue
		}
		tpl := e.templates[name]
		target := e.Target(name, table)

		if performingWell(tpl, current, target) {
			continue
		}

		uplift := e.EstimateUplift(name, tpl.Inverted, current, target, pillarScores)
		if uplift < e.opts.MinUplift || uplift <= 0 {
			continue
		}

		recs = append(recs, Recommendation{
			Signal:          name,
			Category:        tpl.Category,
			FixText:         tpl.Fix,
			Example:         tpl.Example,
			CurrentValue:    current,
			TargetValue:     target,
			EstimatedUplift: uplift,
			Difficulty:      tpl.Difficulty,
		})
	}

	Sort(recs)
	if len(recs) > e.opts.MaxRecommendations {
		recs = recs[:e.opts.MaxRecommendations]
	}
	for i := range recs {
		recs[i].Priority = i + 1
	}
	return recs
}

func performingWell(tpl Template, current, target float64) bool {
	if tpl.Inverted {
		return current <= target
	}
	return current >= target*0.8
}

// EstimateUplift projects the overall score gain from moving a signal to its
// target. Lower-scoring pillars have more headroom and gain more.
func (e *Engine) EstimateUplift(name string, inverted bool, current, target float64, pillarScores map[string]float64) float64 {
	improvement := math.Max(0, target-current)
	if inverted {
		improvement = math.Max(0, current-target)
	}

	pillars := make([]string, 0, len(e.pillarSignals))
	for pillar, sigs := range e.pillarSignals {
		for _, s := range sigs {
			if s == name {
				pillars = append(pillars, pillar)
				break
			}
		}
	}
	sort.Strings(pillars)

	total := 0.0
	for _, pillar := range pillars {
		score, ok := pillarScores[pillar]
		if !ok {
			score = 50
		}
		headroom := (100 - score) / 100
		total += improvement * e.opts.SignalShare * headroom
	}

	return round1(total * e.opts.PillarShare)
}

// Sort orders fixes by uplift descending, then difficulty ascending, then
// signal name so equal fixes always come out in the same order
func Sort(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.EstimatedUplift != b.EstimatedUplift {
			return a.EstimatedUplift > b.EstimatedUplift
		}
		if a.Difficulty.rank() != b.Difficulty.rank() {
			return a.Difficulty.rank() < b.Difficulty.rank()
		}
		return a.Signal < b.Signal
	})
}

// Simulation projects the score after applying a set of fixes
type Simulation struct {
	CurrentScore           float64 `json:"current_score" yaml:"current_score"`
	ProjectedScore         float64 `json:"projected_score" yaml:"projected_score"`
	TotalUplift            float64 `json:"total_uplift" yaml:"total_uplift"`
	Confidence             string  `json:"confidence" yaml:"confidence"`
	RecommendationsApplied int     `json:"recommendations_applied" yaml:"recommendations_applied"`
}

// Simulate applies fixes in priority order, each one 80% as effective as the one before
func Simulate(current float64, recs []Recommendation) Simulation {
	total := 0.0
	for i, r := range recs {
		total += r.EstimatedUplift * math.Pow(0.8, float64(i))
	}

	confidence := "medium"
	if total >= 10 {
		confidence = "low"
	}

	return Simulation{
		CurrentScore:           current,
		ProjectedScore:         round1(math.Min(100, current+total)),
		TotalUplift:            round1(total),
		Confidence:             confidence,
		RecommendationsApplied: len(recs),
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
