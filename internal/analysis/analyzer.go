package analysis

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/recommend"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

// Options tunes the scoring pipeline
type Options struct {
	CrossValidationThreshold float64
	ExpectedSignals          map[signals.Layer]int
	Recommend                recommend.Options
}

// DefaultOptions returns the standard pipeline settings
func DefaultOptions() Options {
	return Options{
		CrossValidationThreshold: DefaultCrossValidationThreshold,
		ExpectedSignals:          signals.DefaultExpected,
		Recommend:                recommend.DefaultOptions(),
	}
}

// Request is one scoring call
type Request struct {
	Signals         signals.Input      `json:"signals"`
	Context         Context            `json:"context"`
	Benchmarks      *benchmarks.Table  `json:"benchmarks,omitempty"`
	WeightOverrides map[string]float64 `json:"weight_overrides,omitempty"`
}

// Report bundles the score with its recommendations
type Report struct {
	Result          FinalScoreResult           `json:"result"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Optimization    recommend.Simulation       `json:"optimization"`
	Coverage        signals.CoverageReport     `json:"coverage"`
	Issues          []errors.Issue             `json:"issues"`
}

// Analyzer runs the scoring pipeline: pillars, cross-validation, weights,
// aggregation and recommendations
type Analyzer struct {
	scorer      *PillarScorer
	adjuster    *WeightAdjuster
	recommender *recommend.Engine
	opts        Options
}

// NewAnalyzer creates an analyzer over the default pillar definitions
func NewAnalyzer(opts Options) *Analyzer {
	defs := DefaultPillars()
	if opts.CrossValidationThreshold <= 0 {
		opts.CrossValidationThreshold = DefaultCrossValidationThreshold
	}
	if opts.ExpectedSignals == nil {
		opts.ExpectedSignals = signals.DefaultExpected
	}
	return &Analyzer{
		scorer:      NewPillarScorer(defs),
		adjuster:    NewWeightAdjuster(),
		recommender: recommend.NewEngine(PillarIndex(defs), opts.Recommend),
		opts:        opts,
	}
}

// Score builds the registry from raw readings and scores it
func (a *Analyzer) Score(ctx context.Context, req Request) (*Report, error) {
	reg, issues := signals.NewRegistry(req.Signals)
	return a.ScoreRegistry(ctx, reg, issues, req)
}

// ScoreRegistry scores an already built registry. Issues raised while
// building it are carried into the warnings.
func (a *Analyzer) ScoreRegistry(ctx context.Context, reg *signals.Registry, prior []errors.Issue, req Request) (*Report, error) {
	issues := append([]errors.Issue(nil), prior...)

	coverage := signals.CoverageWith(reg, a.opts.ExpectedSignals)
	issues = append(issues, coverage.Issues...)

	pillars, pillarIssues, err := a.scorer.ScoreAll(ctx, reg, req.Context.Category, req.Benchmarks)
	if err != nil {
		return nil, fmt.Errorf("failed to score pillars: %w", err)
	}
	issues = append(issues, pillarIssues...)

	contradictions := CrossValidate(pillars, a.opts.CrossValidationThreshold)

	weights, weightIssues := a.adjuster.Adjust(req.Context, req.WeightOverrides)
	issues = append(issues, weightIssues...)

	recs := a.recommender.Generate(reg.Values(), scoresByName(pillars), req.Benchmarks)
	if recs == nil {
		recs = []recommend.Recommendation{}
	}

	var top *recommend.Recommendation
	if len(recs) > 0 {
		top = &recs[0]
	}

	result := Aggregate(AggregateInput{
		Pillars:        pillars,
		Weights:        weights,
		Coverage:       coverage,
		Warnings:       errors.Messages(issues),
		Contradictions: contradictions,
		Context:        req.Context,
		TopFix:         top,
	})

	for _, c := range contradictions {
		issues = append(issues, errors.Issue{Kind: errors.KindContradiction, Message: c})
	}

	return &Report{
		Result:          result,
		Recommendations: recs,
		Optimization:    recommend.Simulate(result.OverallScore, recs),
		Coverage:        coverage,
		Issues:          issues,
	}, nil
}
