package main

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/database"
	"github.com/ZanzyTHEbar/creative-scorer/internal/differentiation"
)

var (
	dirFlag = &urfave.StringFlag{
		Name:     "dir",
		Usage:    "Directory to write the benchmark tables to",
		Required: true,
	}

	rulesCmd = &urfave.Command{
		Name:   "rules",
		Usage:  "Prints the active differentiation rule set version and pattern counts",
		Action: cmdRules,
	}

	benchmarksCmd = &urfave.Command{
		Name:   "benchmarks",
		Usage:  "Writes the built-in category benchmark tables as JSON files",
		Flags:  []urfave.Flag{dirFlag},
		Action: cmdBenchmarks,
	}
)

func cmdRules(c *urfave.Context) error {
	cfg := getConfig(c)

	rules, err := differentiation.LoadRules(cfg.Rules)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	return encode(c.App.Writer, cfg.Format, map[string]interface{}{
		"version": rules.Version,
		"counts":  rules.Counts(),
	})
}

func cmdBenchmarks(c *urfave.Context) error {
	cfg := getConfig(c)
	dir := c.String(dirFlag.Name)

	tables := database.DefaultTables(analysis.DefaultPillars())
	if err := benchmarks.NewStore(dir).Bootstrap(tables); err != nil {
		return err
	}

	categories := make([]string, 0, len(tables))
	for _, t := range tables {
		categories = append(categories, t.Category)
	}
	cfg.Logger.Info("Benchmark tables written", "dir", dir, "tables", len(tables))

	return encode(c.App.Writer, cfg.Format, map[string]interface{}{
		"dir":        dir,
		"categories": categories,
	})
}
