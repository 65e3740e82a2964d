package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
)

// TableService serves benchmark and weight tables to the scoring pipeline.
// It satisfies orchestrator.TableProvider.
type TableService struct {
	repo *Repository
}

// NewTableService creates a table service
func NewTableService(repo *Repository) *TableService {
	return &TableService{repo: repo}
}

// Benchmarks returns the stored table for the context's category, or nil
// when nothing is stored so scoring uses the built-in averages
func (s *TableService) Benchmarks(ctx context.Context, c analysis.Context) (*benchmarks.Table, error) {
	table, err := s.repo.LoadTable(ctx, strings.ToLower(c.Category))
	if err != nil {
		return nil, err
	}
	if len(table.Pillars) == 0 && len(table.Signals) == 0 && table.Overall == nil {
		return nil, nil
	}
	return table, nil
}

// WeightOverrides returns the stored weights that apply to the context
func (s *TableService) WeightOverrides(ctx context.Context, c analysis.Context) (map[string]float64, error) {
	return s.repo.WeightOverrides(ctx, analysis.Context{
		Category:    strings.ToLower(c.Category),
		Platform:    strings.ToLower(c.Platform),
		FunnelStage: strings.ToLower(c.FunnelStage),
	})
}

// Categories lists the categories with stored benchmarks
func (s *TableService) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

// DefaultTables builds per-category pillar averages from the pillar definitions
func DefaultTables(defs []analysis.PillarDefinition) []*benchmarks.Table {
	byCategory := make(map[string]*benchmarks.Table)
	for _, def := range defs {
		for category, avg := range def.BenchmarkByCategory {
			t, ok := byCategory[category]
			if !ok {
				t = benchmarks.Empty(category)
				byCategory[category] = t
			}
			t.Pillars[def.Name] = avg
		}
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	tables := make([]*benchmarks.Table, 0, len(categories))
	for _, c := range categories {
		tables = append(tables, byCategory[c])
	}
	return tables
}

// Seed stores tables and weight overrides
func (s *TableService) Seed(ctx context.Context, tables []*benchmarks.Table, overrides []WeightOverride) error {
	for _, t := range tables {
		if err := s.repo.SaveTable(ctx, t); err != nil {
			return fmt.Errorf("failed to seed benchmarks for %s: %w", t.Category, err)
		}
	}
	if len(overrides) > 0 {
		if err := s.repo.SaveWeightOverrides(ctx, overrides); err != nil {
			return fmt.Errorf("failed to seed weight overrides: %w", err)
		}
	}

	slog.Info("Benchmark store seeded", "tables", len(tables), "weight_overrides", len(overrides))
	return nil
}

// ImportDir loads every <category>.json benchmark file in dir into the store
func (s *TableService) ImportDir(ctx context.Context, dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list benchmark files: %w", err)
	}
	if len(matches) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return 0, fmt.Errorf("benchmark directory unavailable: %w", err)
		}
		return 0, nil
	}

	store := benchmarks.NewStore(dir)
	tables := make([]*benchmarks.Table, 0, len(matches))
	for _, path := range matches {
		category := strings.TrimSuffix(filepath.Base(path), ".json")
		table, err := store.Load(category)
		if err != nil {
			return 0, fmt.Errorf("failed to load %s: %w", path, err)
		}
		tables = append(tables, table)
	}

	if err := s.Seed(ctx, tables, nil); err != nil {
		return 0, err
	}
	return len(tables), nil
}
