package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	apperrors "github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
	"github.com/ZanzyTHEbar/creative-scorer/internal/resilience"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBoom = errors.New("boom")

type fakeMeasurement struct {
	out Measurement
	err error
}

func (f *fakeMeasurement) Measure(context.Context, Creative) (Measurement, error) {
	return f.out, f.err
}

type fakeLayer struct {
	mu    sync.Mutex
	out   LayerOutput
	err   error
	panic string
	calls int
}

func (f *fakeLayer) do() (LayerOutput, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panic != "" {
		panic(f.panic)
	}
	return f.out, f.err
}

func (f *fakeLayer) Perceive(context.Context, Creative) (LayerOutput, error) {
	return f.do()
}

func (f *fakeLayer) Reason(context.Context, string, analysis.Context) (LayerOutput, error) {
	return f.do()
}

func (f *fakeLayer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTables struct {
	table *benchmarks.Table
	err   error
}

func (f *fakeTables) Benchmarks(context.Context, analysis.Context) (*benchmarks.Table, error) {
	return f.table, f.err
}

func (f *fakeTables) WeightOverrides(context.Context, analysis.Context) (map[string]float64, error) {
	return nil, f.err
}

func measured(text string) *fakeMeasurement {
	return &fakeMeasurement{out: Measurement{
		Signals: signals.LayerReadings{
			"contrast_rms":           signals.Bare(62),
			"text_contrast_ratio":    signals.Bare(70),
			"white_space_percentage": signals.Bare(40),
			"clutter_index":          signals.Bare(35),
			"logo_size_percent":      signals.Bare(8),
			"cta_present":            {Value: 1, Unit: signals.UnitBoolean, Confidence: 1},
			"face_count":             signals.Bare(1),
		},
		Text:      text,
		SceneType: "lifestyle",
	}}
}

func perception(tokens int) *fakeLayer {
	return &fakeLayer{out: LayerOutput{
		Signals: signals.LayerReadings{
			"emotional_appeal":  {Value: 72, Unit: signals.UnitScore, Confidence: 0.8},
			"brand_visibility":  {Value: 65, Unit: signals.UnitScore, Confidence: 0.8},
			"narrative_present": {Value: 1, Unit: signals.UnitBoolean, Confidence: 0.7},
		},
		TokensUsed: tokens,
		Summary:    "family at breakfast table with product in hand",
	}}
}

func reasoning(tokens int) *fakeLayer {
	return &fakeLayer{out: LayerOutput{
		Signals: signals.LayerReadings{
			"claim_specificity": {Value: 70, Unit: signals.UnitScore, Confidence: 0.8},
			"claim_credibility": {Value: 66, Unit: signals.UnitScore, Confidence: 0.8},
			"message_clarity":   {Value: 74, Unit: signals.UnitScore, Confidence: 0.8},
			"cognitive_load":    {Value: 30, Unit: signals.UnitScore, Confidence: 0.9},
		},
		TokensUsed: tokens,
	}}
}

func newOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(opts)
	require.NoError(t, err)
	return o
}

func request(budget int) Request {
	return Request{
		Creative:    Creative{Ref: "s3://creatives/breakfast.png"},
		Context:     analysis.Context{Category: "fmcg", Platform: "instagram", FunnelStage: "awareness"},
		TokenBudget: budget,
	}
}

func outcomes(r *Result) map[State]string {
	out := make(map[State]string, len(r.Stages))
	for _, s := range r.Stages {
		out[s.State] = s.Outcome
	}
	return out
}

func TestRun_Completes(t *testing.T) {
	metrics := monitoring.NewMetrics()
	o := newOrchestrator(t, Options{
		Measurement: measured("Cuts your commute by 23 minutes a day"),
		Perception:  perception(1500),
		Reasoning:   reasoning(1800),
		Metrics:     metrics,
	})

	res := o.Run(context.Background(), request(10000))

	require.Equal(t, StateCompleted, res.Status, res.Errors)
	assert.Empty(t, res.Errors)
	assert.Len(t, res.AnalysisID, 36)
	require.Len(t, res.Stages, 8)
	for _, s := range res.Stages {
		assert.Equal(t, OutcomeCompleted, s.Outcome, s.State)
	}

	assert.Equal(t, 3300, res.TotalTokensUsed)
	assert.Equal(t, map[signals.Layer]int{signals.LayerPerceptual: 1500, signals.LayerCognitive: 1800}, res.TokensUsed)
	assert.Equal(t, 6700, res.Budget.Remaining())

	require.NotNil(t, res.Score)
	assert.GreaterOrEqual(t, res.Score.OverallScore, 0.0)
	assert.LessOrEqual(t, res.Score.OverallScore, 100.0)
	assert.Len(t, res.Score.Pillars, 6)
	require.NotNil(t, res.Validation)
	require.NotNil(t, res.Differentiation)
	assert.False(t, res.Differentiation.IsMeToo)
	require.NotNil(t, res.Optimization)
	assert.Equal(t, res.Score.OverallScore, res.Optimization.CurrentScore)

	// LLM reading wins over the simulated one
	assert.Equal(t, 30.0, res.Signals.Cognitive["cognitive_load"].Value)
	assert.Contains(t, res.Signals.Cognitive, "scan_path_efficiency")
	require.NotNil(t, res.Cognition)

	assert.Equal(t, 7, res.LayerSummary["deterministic_signals"])
	assert.Equal(t, 3, res.LayerSummary["perceptual_signals"])
	assert.Equal(t, "Cuts your commute by 23 minutes a day", res.Text)
	assert.Equal(t, "family at breakfast table with product in hand", res.VisualSummary)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats["analyses_completed"])
	assert.Equal(t, int64(3300), stats["tokens_consumed"])
}

func TestRun_BudgetGate(t *testing.T) {
	vision := perception(1500)
	llm := reasoning(1800)
	o := newOrchestrator(t, Options{
		Measurement: measured("Fresh every morning"),
		Perception:  vision,
		Reasoning:   llm,
	})

	res := o.Run(context.Background(), request(1500))

	require.Equal(t, StateCompleted, res.Status)
	assert.Empty(t, res.Signals.Perceptual)
	assert.Contains(t, res.Warnings, "Vision analysis skipped: token budget exceeded")
	assert.Contains(t, res.Warnings, "Copy analysis skipped: token budget exceeded")
	assert.Zero(t, vision.Calls())
	assert.Zero(t, llm.Calls())
	assert.Zero(t, res.TotalTokensUsed)

	assert.Equal(t, measured("").out.Signals, res.Signals.Deterministic)
	assert.Equal(t, OutcomeSkipped, outcomes(res)[StatePerceptual])
	assert.Equal(t, OutcomeSkipped, outcomes(res)[StateCognitive])
	assert.Len(t, apperrors.Filter(res.Issues, apperrors.KindBudgetExhausted), 2)
}

func TestRun_BudgetSpentByPerception(t *testing.T) {
	llm := reasoning(1800)
	o := newOrchestrator(t, Options{
		Measurement: measured("Fresh every morning"),
		Perception:  perception(2000),
		Reasoning:   llm,
	})

	res := o.Run(context.Background(), request(4000))

	require.Equal(t, StateCompleted, res.Status)
	assert.NotEmpty(t, res.Signals.Perceptual)
	assert.Zero(t, llm.Calls())
	assert.Contains(t, res.Warnings, "Copy analysis skipped: token budget exceeded")
	assert.Equal(t, 2000, res.TotalTokensUsed)
}

func TestRun_SoftDegradation(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		text     string
		state    State
		warning  string
		wantKind apperrors.IssueKind
	}{
		{
			name:     "no perception collaborator",
			opts:     Options{Reasoning: reasoning(100)},
			text:     "Fresh every morning",
			state:    StatePerceptual,
			warning:  "Vision analysis skipped: no perception collaborator configured",
			wantKind: apperrors.KindLayerUnavailable,
		},
		{
			name:     "open breaker",
			opts:     Options{Perception: &fakeLayer{err: resilience.ErrCircuitOpen}, Reasoning: reasoning(100)},
			text:     "Fresh every morning",
			state:    StatePerceptual,
			warning:  "Vision analysis skipped: perception collaborator unavailable",
			wantKind: apperrors.KindLayerUnavailable,
		},
		{
			name:     "no copy text",
			opts:     Options{Perception: perception(100), Reasoning: reasoning(100)},
			state:    StateCognitive,
			warning:  "Copy analysis skipped: no copy text found",
			wantKind: apperrors.KindLayerUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Measurement = measured(tt.text)
			res := newOrchestrator(t, tt.opts).Run(context.Background(), request(0))

			require.Equal(t, StateCompleted, res.Status, res.Errors)
			assert.Equal(t, OutcomeSkipped, outcomes(res)[tt.state])
			assert.Contains(t, res.Warnings, tt.warning)
			assert.NotEmpty(t, apperrors.Filter(res.Issues, tt.wantKind))
			require.NotNil(t, res.Score)
		})
	}
}

func TestRun_SimulatedCognitionWithoutText(t *testing.T) {
	o := newOrchestrator(t, Options{Measurement: measured("")})

	res := o.Run(context.Background(), request(0))

	require.Equal(t, StateCompleted, res.Status)
	assert.Contains(t, res.Signals.Cognitive, "cognitive_load")
	assert.Equal(t, 0.7, res.Signals.Cognitive["cognitive_load"].Confidence)
}

func TestRun_Failures(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		opts    Options
		req     Request
		state   State
		message string
	}{
		{
			name:    "empty creative",
			ctx:     context.Background(),
			opts:    Options{},
			req:     Request{},
			state:   StateValidating,
			message: "creative needs a reference or measured signals",
		},
		{
			name:    "cancelled context",
			ctx:     cancelled,
			opts:    Options{Measurement: measured("x")},
			req:     request(0),
			state:   StateValidating,
			message: "context canceled",
		},
		{
			name:    "measurement error",
			ctx:     context.Background(),
			opts:    Options{Measurement: &fakeMeasurement{err: errBoom}},
			req:     request(0),
			state:   StateDeterministic,
			message: "analysis failed during deterministic",
		},
		{
			name:    "reasoning error",
			ctx:     context.Background(),
			opts:    Options{Measurement: measured("Fresh"), Reasoning: &fakeLayer{err: errBoom}},
			req:     request(0),
			state:   StateCognitive,
			message: "analysis failed during cognitive",
		},
		{
			name:    "perception panic",
			ctx:     context.Background(),
			opts:    Options{Measurement: measured("Fresh"), Perception: &fakeLayer{panic: "kaboom"}},
			req:     request(0),
			state:   StatePerceptual,
			message: "panic: kaboom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newOrchestrator(t, tt.opts).Run(tt.ctx, tt.req)

			require.True(t, res.Failed())
			require.Len(t, res.Errors, 1)
			assert.Contains(t, res.Errors[0], tt.message)
			assert.Contains(t, res.Errors[0], "ORCHESTRATION_ERROR")

			last := res.Stages[len(res.Stages)-1]
			assert.Equal(t, tt.state, last.State)
			assert.Equal(t, OutcomeFailed, last.Outcome)
			assert.Nil(t, res.Score)
			assert.NotNil(t, res.Recommendations)
		})
	}
}

func TestRun_FailureKeepsPartialResults(t *testing.T) {
	o := newOrchestrator(t, Options{
		Measurement: measured("Fresh"),
		Perception:  perception(500),
		Reasoning:   &fakeLayer{err: errBoom},
	})

	res := o.Run(context.Background(), request(0))

	require.True(t, res.Failed())
	assert.Len(t, res.Signals.Deterministic, 7)
	assert.Len(t, res.Signals.Perceptual, 3)
	assert.Equal(t, 500, res.TotalTokensUsed)

	h, ok := o.Health().Health(CollaboratorReasoning)
	require.True(t, ok)
	assert.Equal(t, int64(1), h.Errors)
}

func TestRun_MeTooWarning(t *testing.T) {
	o := newOrchestrator(t, Options{
		Measurement: measured("Premium quality, world class and revolutionary. Shop now!"),
	})

	res := o.Run(context.Background(), request(0))

	require.Equal(t, StateCompleted, res.Status)
	require.NotNil(t, res.Differentiation)
	assert.True(t, res.Differentiation.IsMeToo)
	assert.Contains(t, res.Warnings, "Creative shows low differentiation. Consider unique value proposition.")
}

func TestRun_UsesTables(t *testing.T) {
	table := &benchmarks.Table{
		Category: "fmcg",
		Pillars:  map[string]float64{"attention_capture": 40},
	}

	t.Run("benchmarks applied", func(t *testing.T) {
		res := newOrchestrator(t, Options{
			Measurement: measured("Fresh"),
			Tables:      &fakeTables{table: table},
		}).Run(context.Background(), request(0))

		require.Equal(t, StateCompleted, res.Status)
		p := res.Score.Pillars["attention_capture"]
		assert.InDelta(t, p.Score-40, p.VsCategoryAvg, 0.11)
	})

	t.Run("table errors degrade", func(t *testing.T) {
		res := newOrchestrator(t, Options{
			Measurement: measured("Fresh"),
			Tables:      &fakeTables{err: errBoom},
		}).Run(context.Background(), request(0))

		assert.Equal(t, StateCompleted, res.Status)
	})
}

func TestRun_PreMeasuredSignals(t *testing.T) {
	o := newOrchestrator(t, Options{})
	res := o.Run(context.Background(), Request{
		Creative: Creative{
			Text:    "Cuts your commute by 23 minutes a day",
			Signals: signals.LayerReadings{"contrast_rms": signals.Bare(50)},
		},
	})

	require.Equal(t, StateCompleted, res.Status, res.Errors)
	assert.Equal(t, DefaultTokenBudget, res.Budget.Limit)
	assert.Equal(t, 50.0, res.Signals.Deterministic["contrast_rms"].Value)
}

func TestRun_ConcurrentRunsOwnTheirBudget(t *testing.T) {
	o := newOrchestrator(t, Options{
		Measurement: measured("Fresh"),
		Perception:  perception(2000),
		Reasoning:   reasoning(2500),
	})

	const runs = 8
	results := make([]*Result, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = o.Run(context.Background(), request(5000))
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.Equal(t, StateCompleted, res.Status)
		assert.Equal(t, 4500, res.TotalTokensUsed)
	}
}

func TestBudget(t *testing.T) {
	b := NewBudget(4000)
	assert.True(t, b.Allows(PerceptualCost))
	assert.True(t, b.Allows(4000))
	assert.False(t, b.Allows(4001))

	spent := b.Spend(2100)
	assert.Equal(t, 0, b.Used, "spend returns a copy")
	assert.Equal(t, 2100, spent.Used)
	assert.False(t, spent.Allows(CognitiveCost))
	assert.Equal(t, 1900, spent.Remaining())

	assert.Equal(t, 0, spent.Spend(5000).Remaining())
	assert.Equal(t, spent, spent.Spend(-10))
}
