package main

import (
	"context"
	"fmt"
	"strings"

	urfave "github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/creative-scorer/internal/adapters"
	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/differentiation"
	"github.com/ZanzyTHEbar/creative-scorer/internal/orchestrator"
)

var (
	signalsFlag = &urfave.StringFlag{
		Name:     "signals",
		Usage:    "Path to a JSON file with deterministic, perceptual and cognitive readings",
		Required: true,
	}

	categoryFlag = &urfave.StringFlag{
		Name:  "category",
		Usage: "Product category (e.g. fmcg, tech, fashion)",
	}

	platformFlag = &urfave.StringFlag{
		Name:  "platform",
		Usage: "Placement platform (e.g. meta, tiktok, youtube)",
	}

	funnelFlag = &urfave.StringFlag{
		Name:  "funnel",
		Usage: "Funnel stage [awareness, consideration, conversion]",
	}

	benchmarksDirFlag = &urfave.StringFlag{
		Name:  "benchmarks",
		Usage: "Directory of <category>.json benchmark tables (optional, defaults to built-in averages)",
	}

	textFlag = &urfave.StringFlag{
		Name:  "text",
		Usage: "Copy text of the creative, used for differentiation",
	}

	sceneFlag = &urfave.StringFlag{
		Name:  "scene",
		Usage: "Scene type reported by perception (e.g. lifestyle, product_only)",
	}

	budgetFlag = &urfave.IntFlag{
		Name:  "budget",
		Usage: "Token budget for the replayed AI layers",
		Value: orchestrator.DefaultTokenBudget,
	}

	scoreCmd = &urfave.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Scores a recorded signal set through the full analysis pipeline",
		Flags: []urfave.Flag{
			signalsFlag,
			categoryFlag,
			platformFlag,
			funnelFlag,
			benchmarksDirFlag,
			textFlag,
			sceneFlag,
			budgetFlag,
		},
		Action: cmdScore,
	}
)

// fileTables serves benchmark tables from a directory of JSON files
type fileTables struct {
	store *benchmarks.Store
}

func (f *fileTables) Benchmarks(_ context.Context, c analysis.Context) (*benchmarks.Table, error) {
	return f.store.Load(strings.ToLower(c.Category))
}

func (f *fileTables) WeightOverrides(context.Context, analysis.Context) (map[string]float64, error) {
	return nil, nil
}

func contextFlags(c *urfave.Context) analysis.Context {
	return analysis.Context{
		Category:    c.String(categoryFlag.Name),
		Platform:    c.String(platformFlag.Name),
		FunnelStage: c.String(funnelFlag.Name),
	}
}

func cmdScore(c *urfave.Context) error {
	cfg := getConfig(c)

	path := c.String(signalsFlag.Name)
	in, err := readSignals(path)
	if err != nil {
		return err
	}

	rules, err := differentiation.LoadRules(cfg.Rules)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	// Recorded readings replay through every collaborator slot
	src := adapters.NewStaticSource(in, c.String(textFlag.Name))
	src.SceneType = c.String(sceneFlag.Name)

	opts := orchestrator.Options{
		Measurement:     src,
		Perception:      src,
		Reasoning:       src,
		Differentiation: differentiation.NewAnalyzer(rules),
		Logger:          cfg.Logger,
		TokenBudget:     c.Int(budgetFlag.Name),
	}
	if dir := c.String(benchmarksDirFlag.Name); dir != "" {
		opts.Tables = &fileTables{store: benchmarks.NewStore(dir)}
	}

	orch, err := orchestrator.New(opts)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	result := orch.Run(c.Context, orchestrator.Request{
		Creative: orchestrator.Creative{Ref: path, Text: c.String(textFlag.Name)},
		Context:  contextFlags(c),
	})

	if err := encode(c.App.Writer, cfg.Format, result); err != nil {
		return err
	}
	if result.Failed() {
		return fmt.Errorf("analysis failed: %s", strings.Join(result.Errors, "; "))
	}
	return nil
}
