package main

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/compare"
)

var (
	aFlag = &urfave.StringFlag{
		Name:     "a",
		Usage:    "Signals file of creative A",
		Required: true,
	}

	bFlag = &urfave.StringFlag{
		Name:     "b",
		Usage:    "Signals file of creative B",
		Required: true,
	}

	thresholdFlag = &urfave.Float64Flag{
		Name:  "threshold",
		Usage: "Smallest score gap treated as a real difference",
		Value: compare.DefaultThreshold,
	}

	compareCmd = &urfave.Command{
		Name:    "compare",
		Aliases: []string{"c"},
		Usage:   "Scores two signal sets in the same context and compares them",
		Flags: []urfave.Flag{
			aFlag,
			bFlag,
			categoryFlag,
			platformFlag,
			funnelFlag,
			benchmarksDirFlag,
			thresholdFlag,
		},
		Action: cmdCompare,
	}
)

type comparison struct {
	Comparison compare.Result            `json:"comparison"`
	A          analysis.FinalScoreResult `json:"a"`
	B          analysis.FinalScoreResult `json:"b"`
}

func cmdCompare(c *urfave.Context) error {
	cfg := getConfig(c)
	actx := contextFlags(c)

	var table *benchmarks.Table
	if dir := c.String(benchmarksDirFlag.Name); dir != "" && actx.Category != "" {
		t, err := (&fileTables{store: benchmarks.NewStore(dir)}).Benchmarks(c.Context, actx)
		if err != nil {
			return fmt.Errorf("loading benchmarks: %w", err)
		}
		table = t
	}

	analyzer := analysis.NewAnalyzer(analysis.DefaultOptions())
	score := func(path string) (*analysis.FinalScoreResult, error) {
		in, err := readSignals(path)
		if err != nil {
			return nil, err
		}
		report, err := analyzer.Score(c.Context, analysis.Request{
			Signals:    in,
			Context:    actx,
			Benchmarks: table,
		})
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", path, err)
		}
		return &report.Result, nil
	}

	a, err := score(c.String(aFlag.Name))
	if err != nil {
		return err
	}
	b, err := score(c.String(bFlag.Name))
	if err != nil {
		return err
	}

	engine := compare.NewEngine(c.Float64(thresholdFlag.Name))
	return encode(c.App.Writer, cfg.Format, comparison{
		Comparison: engine.Compare(a, b, table),
		A:          *a,
		B:          *b,
	})
}
