package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPillarAverage is used when neither the table nor the pillar
// definition knows the category
const DefaultPillarAverage = 60.0

// Quartiles is the observed distribution of a signal or score in a category
type Quartiles struct {
	P25        float64 `json:"p25" yaml:"p25"`
	P50        float64 `json:"p50" yaml:"p50"`
	P75        float64 `json:"p75" yaml:"p75"`
	P90        float64 `json:"p90,omitempty" yaml:"p90,omitempty"`
	SampleSize int     `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`
}

// Table holds category benchmarks. It is read-only once built.
type Table struct {
	Category string               `json:"category" yaml:"category"`
	Pillars  map[string]float64   `json:"pillars,omitempty" yaml:"pillars,omitempty"`
	Signals  map[string]Quartiles `json:"signals,omitempty" yaml:"signals,omitempty"`
	// Overall is the distribution of final scores used for percentile placement
	Overall *Quartiles `json:"overall,omitempty" yaml:"overall,omitempty"`
}

// PillarAverage returns the category average for a pillar
func (t *Table) PillarAverage(pillar string) (float64, bool) {
	if t == nil || t.Pillars == nil {
		return 0, false
	}
	v, ok := t.Pillars[pillar]
	return v, ok
}

// SignalQuartiles returns the distribution of a signal
func (t *Table) SignalQuartiles(name string) (Quartiles, bool) {
	if t == nil || t.Signals == nil {
		return Quartiles{}, false
	}
	q, ok := t.Signals[name]
	return q, ok
}

// Empty returns an empty table for a category
func Empty(category string) *Table {
	return &Table{
		Category: category,
		Pillars:  map[string]float64{},
		Signals:  map[string]Quartiles{},
	}
}

// Store manages benchmark tables on disk, one JSON file per category
type Store struct {
	dataDir string
}

// NewStore creates a new benchmark store
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) path(category string) (string, error) {
	if category == "" || strings.ContainsAny(category, `/\`) || strings.Contains(category, "..") {
		return "", fmt.Errorf("invalid benchmark category %q", category)
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("%s.json", category)), nil
}

// Load loads the benchmark table for a category. A missing file yields an
// empty table so callers fall back to built-in defaults.
func (s *Store) Load(category string) (*Table, error) {
	if category == "" {
		return Empty(category), nil
	}

	filePath, err := s.path(category)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return Empty(category), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open benchmark file: %w", err)
	}
	defer file.Close()

	var table Table
	if err := json.NewDecoder(file).Decode(&table); err != nil {
		return nil, fmt.Errorf("failed to decode benchmark data: %w", err)
	}
	if table.Category == "" {
		table.Category = category
	}

	return &table, nil
}

// Save writes the table for its category
func (s *Store) Save(table *Table) error {
	if table == nil {
		return fmt.Errorf("nil benchmark table")
	}

	filePath, err := s.path(table.Category)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create benchmark directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create benchmark file: %w", err)
	}

	return writeTable(file, table)
}

// writeTable encodes the table and closes w, reporting a failed close
func writeTable(w io.WriteCloser, table *Table) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(table); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode benchmark data: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close benchmark file: %w", err)
	}
	return nil
}

// Bootstrap saves a set of tables
func (s *Store) Bootstrap(tables []*Table) error {
	for _, t := range tables {
		if err := s.Save(t); err != nil {
			return fmt.Errorf("failed to save benchmarks for %s: %w", t.Category, err)
		}
	}
	return nil
}
