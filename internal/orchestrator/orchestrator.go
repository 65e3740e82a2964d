package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/differentiation"
	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
	"github.com/ZanzyTHEbar/creative-scorer/internal/recommend"
	"github.com/ZanzyTHEbar/creative-scorer/internal/resilience"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
	"github.com/ZanzyTHEbar/creative-scorer/internal/validation"
)

// Collaborator names used for health and metrics
const (
	CollaboratorMeasurement = "measurement"
	CollaboratorPerception  = "perception"
	CollaboratorReasoning   = "reasoning"
)

// Options wires the orchestrator's collaborators. Only the scoring core is
// required; nil sources make their layer skip.
type Options struct {
	Measurement MeasurementSource
	Perception  PerceptionSource
	Reasoning   ReasoningSource
	Tables      TableProvider

	Analyzer        *analysis.Analyzer
	Validator       *validation.Validator
	Differentiation *differentiation.Analyzer
	Health          *resilience.HealthTracker
	Logger          *monitoring.Logger
	Metrics         *monitoring.Metrics

	TokenBudget int
}

// Orchestrator drives one creative through measurement, the AI layers,
// validation, scoring, differentiation and recommendations
type Orchestrator struct {
	measure  MeasurementSource
	perceive PerceptionSource
	reason   ReasoningSource
	tables   TableProvider

	analyzer  *analysis.Analyzer
	validator *validation.Validator
	differ    *differentiation.Analyzer
	health    *resilience.HealthTracker
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics

	tokenBudget int
}

// New creates an orchestrator, filling unset components with defaults
func New(opts Options) (*Orchestrator, error) {
	if opts.Analyzer == nil {
		opts.Analyzer = analysis.NewAnalyzer(analysis.DefaultOptions())
	}
	if opts.Validator == nil {
		opts.Validator = validation.NewValidator()
	}
	if opts.Differentiation == nil {
		rules, err := differentiation.DefaultRules()
		if err != nil {
			return nil, err
		}
		opts.Differentiation = differentiation.NewAnalyzer(rules)
	}
	if opts.Health == nil {
		opts.Health = resilience.NewHealthTracker(resilience.DefaultHealthConfig())
	}
	if opts.Logger == nil {
		opts.Logger = monitoring.NewLoggerTo(io.Discard, "error")
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = DefaultTokenBudget
	}

	return &Orchestrator{
		measure:     opts.Measurement,
		perceive:    opts.Perception,
		reason:      opts.Reasoning,
		tables:      opts.Tables,
		analyzer:    opts.Analyzer,
		validator:   opts.Validator,
		differ:      opts.Differentiation,
		health:      opts.Health,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		tokenBudget: opts.TokenBudget,
	}, nil
}

// Health returns the collaborator health tracker
func (o *Orchestrator) Health() *resilience.HealthTracker {
	return o.health
}

// run is the per-analysis working set
type run struct {
	req     Request
	result  *Result
	input   signals.Input
	text    string
	scene   string
	summary string
	issues  []errors.Issue
	skipped bool

	registry *signals.Registry
	report   *analysis.Report
}

func (r *run) skip(kind errors.IssueKind, format string, args ...interface{}) {
	r.skipped = true
	r.issues = append(r.issues, errors.NewIssue(kind, format, args...))
}

type stageFunc func(ctx context.Context, r *run, b Budget) (Budget, error)

// Run executes the full pipeline. It never returns an error: failures are
// recorded on the result, which keeps everything produced before them.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Result {
	start := time.Now()
	o.metrics.RecordAnalysisStarted()

	limit := req.TokenBudget
	if limit <= 0 {
		limit = o.tokenBudget
	}
	budget := NewBudget(limit)

	r := &run{
		req: req,
		result: &Result{
			AnalysisID:      uuid.NewString(),
			Stages:          []StageTrace{},
			Recommendations: []recommend.Recommendation{},
			TokensUsed:      map[signals.Layer]int{},
			Warnings:        []string{},
			Issues:          []errors.Issue{},
			Errors:          []string{},
		},
		input: signals.Input{
			Deterministic: signals.LayerReadings{},
			Perceptual:    signals.LayerReadings{},
			Cognitive:     signals.LayerReadings{},
		},
	}
	o.logger.Info("Analysis started", "analysis_id", r.result.AnalysisID, "token_budget", limit)

	stages := []struct {
		state State
		fn    stageFunc
	}{
		{StateValidating, o.validateRequest},
		{StateDeterministic, o.runDeterministic},
		{StatePerceptual, o.runPerceptual},
		{StateCognitive, o.runCognitive},
		{StateValidatingSignals, o.validateSignals},
		{StateScoring, o.runScoring},
		{StateDifferentiation, o.runDifferentiation},
		{StateRecommending, o.runRecommending},
	}

	status := StateCompleted
	for _, s := range stages {
		var err error
		budget, err = o.stage(ctx, r, s.state, s.fn, budget)
		if err != nil {
			status = StateFailed
			r.result.Errors = append(r.result.Errors, errors.Describe(err))
			o.logger.Error("Analysis failed", "analysis_id", r.result.AnalysisID, "stage", s.state, "error", err)
			break
		}
	}

	o.finalize(r, status, budget, time.Since(start))
	return r.result
}

// stage runs one state, converting panics and context cancellation into
// orchestration errors
func (o *Orchestrator) stage(ctx context.Context, r *run, state State, fn stageFunc, b Budget) (out Budget, err error) {
	start := time.Now()
	r.skipped = false
	out = b

	defer func() {
		if p := recover(); p != nil {
			err = errors.NewOrchestrationError(string(state), fmt.Errorf("panic: %v", p))
		}

		outcome := OutcomeCompleted
		switch {
		case err != nil:
			outcome = OutcomeFailed
		case r.skipped:
			outcome = OutcomeSkipped
		}
		elapsed := time.Since(start)
		r.result.Stages = append(r.result.Stages, StageTrace{State: state, Outcome: outcome, DurationMS: elapsed.Milliseconds()})
		o.logger.StageLogger(r.result.AnalysisID, string(state), outcome, elapsed)
	}()

	if cerr := ctx.Err(); cerr != nil {
		return b, errors.NewOrchestrationError(string(state), cerr)
	}

	next, ferr := fn(ctx, r, b)
	if ferr != nil {
		if appErr, ok := ferr.(*errors.AppError); ok && appErr.Category == errors.CategoryOrchestration {
			return next, appErr
		}
		return next, errors.NewOrchestrationError(string(state), ferr)
	}
	return next, nil
}

func (o *Orchestrator) validateRequest(_ context.Context, r *run, b Budget) (Budget, error) {
	c := r.req.Creative
	if c.Ref == "" && len(c.Signals) == 0 {
		return b, errors.NewValidationError("creative needs a reference or measured signals")
	}
	if c.Ref != "" && o.measure == nil && len(c.Signals) == 0 {
		return b, errors.NewValidationError("no measurement collaborator configured and no measured signals supplied")
	}
	if r.req.TokenBudget < 0 {
		return b, errors.NewValidationError("token budget must not be negative")
	}
	return b, nil
}

func (o *Orchestrator) runDeterministic(ctx context.Context, r *run, b Budget) (Budget, error) {
	c := r.req.Creative
	for name, reading := range c.Signals {
		r.input.Deterministic[name] = reading
	}
	r.text = c.Text

	if o.measure == nil || c.Ref == "" {
		return b, nil
	}

	var m Measurement
	err := o.call(CollaboratorMeasurement, func() error {
		var err error
		m, err = o.measure.Measure(ctx, c)
		return err
	})
	if err != nil {
		return b, errors.NewUpstreamError(CollaboratorMeasurement, err)
	}

	for name, reading := range m.Signals {
		r.input.Deterministic[name] = reading
	}
	if r.text == "" {
		r.text = m.Text
	}
	r.scene = m.SceneType
	return b, nil
}

func (o *Orchestrator) runPerceptual(ctx context.Context, r *run, b Budget) (Budget, error) {
	switch {
	case o.perceive == nil:
		r.skip(errors.KindLayerUnavailable, "Vision analysis skipped: no perception collaborator configured")
		return b, nil
	case !b.Allows(PerceptualCost):
		o.recordSkip(CollaboratorPerception, signals.LayerPerceptual)
		r.skip(errors.KindBudgetExhausted, "Vision analysis skipped: token budget exceeded")
		return b, nil
	}

	var out LayerOutput
	err := o.call(CollaboratorPerception, func() error {
		var err error
		out, err = o.perceive.Perceive(ctx, r.req.Creative)
		return err
	})
	if resilience.IsOpen(err) {
		o.recordSkip(CollaboratorPerception, signals.LayerPerceptual)
		r.skip(errors.KindLayerUnavailable, "Vision analysis skipped: perception collaborator unavailable")
		return b, nil
	}
	if err != nil {
		return b, errors.NewUpstreamError(CollaboratorPerception, err)
	}

	for name, reading := range out.Signals {
		r.input.Perceptual[name] = reading
	}
	r.summary = out.Summary
	if out.SceneType != "" {
		r.scene = out.SceneType
	}
	r.result.TokensUsed[signals.LayerPerceptual] = out.TokensUsed
	return b.Spend(out.TokensUsed), nil
}

func (o *Orchestrator) runCognitive(ctx context.Context, r *run, b Budget) (Budget, error) {
	b, err := o.reasonAboutCopy(ctx, r, b)
	if err != nil {
		return b, err
	}

	// Simulated signals fill gaps the reasoning layer left
	measured := r.input.Flatten(signals.LayerDeterministic, signals.LayerPerceptual)
	cognition := analysis.SimulateCognition(measured)
	for name, reading := range cognition.Signals {
		if _, ok := r.input.Cognitive[name]; !ok {
			r.input.Cognitive[name] = reading
		}
	}
	r.result.Cognition = &cognition
	return b, nil
}

func (o *Orchestrator) reasonAboutCopy(ctx context.Context, r *run, b Budget) (Budget, error) {
	switch {
	case r.text == "":
		r.skip(errors.KindLayerUnavailable, "Copy analysis skipped: no copy text found")
		return b, nil
	case o.reason == nil:
		r.skip(errors.KindLayerUnavailable, "Copy analysis skipped: no reasoning collaborator configured")
		return b, nil
	case !b.Allows(CognitiveCost):
		o.recordSkip(CollaboratorReasoning, signals.LayerCognitive)
		r.skip(errors.KindBudgetExhausted, "Copy analysis skipped: token budget exceeded")
		return b, nil
	}

	var out LayerOutput
	err := o.call(CollaboratorReasoning, func() error {
		var err error
		out, err = o.reason.Reason(ctx, r.text, r.req.Context)
		return err
	})
	if resilience.IsOpen(err) {
		o.recordSkip(CollaboratorReasoning, signals.LayerCognitive)
		r.skip(errors.KindLayerUnavailable, "Copy analysis skipped: reasoning collaborator unavailable")
		return b, nil
	}
	if err != nil {
		return b, errors.NewUpstreamError(CollaboratorReasoning, err)
	}

	for name, reading := range out.Signals {
		r.input.Cognitive[name] = reading
	}
	r.result.TokensUsed[signals.LayerCognitive] = out.TokensUsed
	return b.Spend(out.TokensUsed), nil
}

func (o *Orchestrator) validateSignals(_ context.Context, r *run, b Budget) (Budget, error) {
	reg, issues := signals.NewRegistry(r.input)
	r.registry = reg
	r.issues = append(r.issues, issues...)

	v := o.validator.Validate(reg.Values())
	r.result.Validation = &v
	r.issues = append(r.issues, v.Issues()...)
	return b, nil
}

func (o *Orchestrator) runScoring(ctx context.Context, r *run, b Budget) (Budget, error) {
	req := analysis.Request{Signals: r.input, Context: r.req.Context}
	if o.tables != nil {
		table, err := o.tables.Benchmarks(ctx, r.req.Context)
		if err != nil {
			o.logger.Warn("Benchmark table unavailable", "analysis_id", r.result.AnalysisID, "error", err)
		}
		overrides, err := o.tables.WeightOverrides(ctx, r.req.Context)
		if err != nil {
			o.logger.Warn("Weight overrides unavailable", "analysis_id", r.result.AnalysisID, "error", err)
		}
		req.Benchmarks = table
		req.WeightOverrides = overrides
	}

	report, err := o.analyzer.ScoreRegistry(ctx, r.registry, r.issues, req)
	if err != nil {
		return b, err
	}

	v := r.result.Validation
	report.Result.MergeFindings(v.Contradictions, nil, v.SanityPassed)
	r.report = report
	r.issues = report.Issues
	r.result.Score = &report.Result
	return b, nil
}

func (o *Orchestrator) runDifferentiation(_ context.Context, r *run, b Budget) (Budget, error) {
	d := o.differ.Analyze(differentiation.Input{
		Text:      r.text,
		SceneType: r.scene,
		Values:    r.registry.Values(),
	})
	r.result.Differentiation = &d
	if d.IsMeToo {
		r.issues = append(r.issues, errors.NewIssue(errors.KindLowDifferentiation,
			"Creative shows low differentiation. Consider unique value proposition."))
	}
	return b, nil
}

func (o *Orchestrator) runRecommending(_ context.Context, r *run, b Budget) (Budget, error) {
	recs := r.report.Recommendations
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	r.result.Recommendations = recs
	sim := recommend.Simulate(r.report.Result.OverallScore, recs)
	r.result.Optimization = &sim
	return b, nil
}

// call invokes a collaborator and records its outcome. An open breaker is a
// skip, not a failure.
func (o *Orchestrator) call(name string, fn func() error) error {
	err := fn()
	switch {
	case err == nil:
		o.health.RecordSuccess(name)
		o.metrics.RecordCollaboratorCall(name, true)
	case resilience.IsOpen(err):
	default:
		o.health.RecordFailure(name, err)
		o.metrics.RecordCollaboratorCall(name, false)
	}
	return err
}

func (o *Orchestrator) recordSkip(collaborator string, layer signals.Layer) {
	o.health.RecordSkip(collaborator)
	o.metrics.RecordLayerSkip(string(layer))
}

func (o *Orchestrator) finalize(r *run, status State, b Budget, elapsed time.Duration) {
	res := r.result
	res.Status = status
	res.Signals = r.input
	res.Text = r.text
	res.VisualSummary = r.summary
	res.Budget = b
	res.TotalTokensUsed = b.Used
	res.Issues = append(res.Issues, r.issues...)
	res.Warnings = errors.Messages(res.Issues)
	res.ProcessingTimeMS = elapsed.Milliseconds()
	res.LayerSummary = map[string]int{
		"deterministic_signals": len(r.input.Deterministic),
		"perceptual_signals":    len(r.input.Perceptual),
		"cognitive_signals":     len(r.input.Cognitive),
	}

	o.metrics.RecordAnalysisFinished(status == StateFailed, b.Used)

	score, confidence := 0.0, ""
	if res.Score != nil {
		score, confidence = res.Score.OverallScore, string(res.Score.ConfidenceLevel)
	}
	o.logger.AnalysisLogger(res.AnalysisID, string(status), score, confidence, b.Used, elapsed)
}
