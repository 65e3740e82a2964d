package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
)

// Repository reads and writes benchmark and weight tables
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveTable upserts every row of a benchmark table in one transaction
func (r *Repository) SaveTable(ctx context.Context, table *benchmarks.Table) error {
	if table == nil || table.Category == "" {
		return fmt.Errorf("benchmark table needs a category")
	}

	pillarStmt, err := r.db.GetPreparedStatement("upsert_pillar")
	if err != nil {
		return err
	}
	signalStmt, err := r.db.GetPreparedStatement("upsert_signal")
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for pillar, avg := range table.Pillars {
		if _, err := tx.StmtContext(ctx, pillarStmt).ExecContext(ctx, table.Category, pillar, avg, now); err != nil {
			return fmt.Errorf("failed to save pillar benchmark %s: %w", pillar, err)
		}
	}

	upsertSignal := func(name string, q benchmarks.Quartiles) error {
		_, err := tx.StmtContext(ctx, signalStmt).ExecContext(ctx,
			table.Category, name, q.P25, q.P50, q.P75, q.P90, q.SampleSize, now)
		return err
	}
	for name, q := range table.Signals {
		if name == overallSignal {
			continue
		}
		if err := upsertSignal(name, q); err != nil {
			return fmt.Errorf("failed to save signal benchmark %s: %w", name, err)
		}
	}
	if table.Overall != nil {
		if err := upsertSignal(overallSignal, *table.Overall); err != nil {
			return fmt.Errorf("failed to save overall distribution: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit benchmark table: %w", err)
	}
	return nil
}

// LoadTable reads the benchmark table of a category. A category with no rows
// yields an empty table.
func (r *Repository) LoadTable(ctx context.Context, category string) (*benchmarks.Table, error) {
	table := benchmarks.Empty(category)
	if category == "" {
		return table, nil
	}

	pillarStmt, err := r.db.GetPreparedStatement("get_pillars")
	if err != nil {
		return nil, err
	}
	rows, err := pillarStmt.QueryContext(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query pillar benchmarks: %w", err)
	}
	for rows.Next() {
		var pillar string
		var avg float64
		if err := rows.Scan(&pillar, &avg); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan pillar benchmark: %w", err)
		}
		table.Pillars[pillar] = avg
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read pillar benchmarks: %w", err)
	}
	rows.Close()

	signalStmt, err := r.db.GetPreparedStatement("get_signals")
	if err != nil {
		return nil, err
	}
	rows, err = signalStmt.QueryContext(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query signal benchmarks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var q benchmarks.Quartiles
		if err := rows.Scan(&name, &q.P25, &q.P50, &q.P75, &q.P90, &q.SampleSize); err != nil {
			return nil, fmt.Errorf("failed to scan signal benchmark: %w", err)
		}
		if name == overallSignal {
			overall := q
			table.Overall = &overall
			continue
		}
		table.Signals[name] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read signal benchmarks: %w", err)
	}

	return table, nil
}

// SaveWeightOverrides upserts stored pillar weights
func (r *Repository) SaveWeightOverrides(ctx context.Context, overrides []WeightOverride) error {
	stmt, err := r.db.GetPreparedStatement("upsert_weight")
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, o := range overrides {
		if o.Pillar == "" || o.Weight < 0 {
			return fmt.Errorf("invalid weight override %+v", o)
		}
		if _, err := tx.StmtContext(ctx, stmt).ExecContext(ctx,
			o.Category, o.Platform, o.FunnelStage, o.Pillar, o.Weight, now); err != nil {
			return fmt.Errorf("failed to save weight override for %s: %w", o.Pillar, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit weight overrides: %w", err)
	}
	return nil
}

// WeightOverrides resolves the pillar weights that apply to an analysis
// context. For each pillar the most specifically scoped row wins.
func (r *Repository) WeightOverrides(ctx context.Context, c analysis.Context) (map[string]float64, error) {
	stmt, err := r.db.GetPreparedStatement("get_weights")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, c.Category, c.Platform, c.FunnelStage)
	if err != nil {
		return nil, fmt.Errorf("failed to query weight overrides: %w", err)
	}
	defer rows.Close()

	best := make(map[string]WeightOverride)
	for rows.Next() {
		var o WeightOverride
		if err := rows.Scan(&o.Category, &o.Platform, &o.FunnelStage, &o.Pillar, &o.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan weight override: %w", err)
		}
		if cur, ok := best[o.Pillar]; !ok || o.specificity() > cur.specificity() {
			best[o.Pillar] = o
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read weight overrides: %w", err)
	}

	if len(best) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(best))
	for pillar, o := range best {
		out[pillar] = o.Weight
	}
	return out, nil
}

// Categories lists the categories that have benchmark rows
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	stmt, err := r.db.GetPreparedStatement("list_categories")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
