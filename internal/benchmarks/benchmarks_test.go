package benchmarks

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingCategory(t *testing.T) {
	store := NewStore(t.TempDir())

	tests := []struct {
		name     string
		category string
	}{
		{name: "unknown category", category: "beverages"},
		{name: "empty category", category: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := store.Load(tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.category, table.Category)
			assert.Empty(t, table.Pillars)
			assert.Empty(t, table.Signals)
		})
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested"))

	table := &Table{
		Category: "fmcg",
		Pillars:  map[string]float64{"attention_capture": 65},
		Signals:  map[string]Quartiles{"contrast_rms": {P25: 30, P50: 45, P75: 62, SampleSize: 120}},
		Overall:  &Quartiles{P25: 48, P50: 58, P75: 69},
	}
	require.NoError(t, store.Save(table))

	loaded, err := store.Load("fmcg")
	require.NoError(t, err)
	assert.Equal(t, table, loaded)

	avg, ok := loaded.PillarAverage("attention_capture")
	assert.True(t, ok)
	assert.Equal(t, 65.0, avg)

	q, ok := loaded.SignalQuartiles("contrast_rms")
	assert.True(t, ok)
	assert.Equal(t, 62.0, q.P75)
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("../etc/passwd")
	assert.Error(t, err)

	err = store.Save(&Table{Category: "a/b"})
	assert.Error(t, err)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tech.json"), []byte("{not json"), 0644))

	_, err := NewStore(dir).Load("tech")
	assert.Error(t, err)
}

func TestStore_Bootstrap(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Bootstrap([]*Table{Empty("fashion"), Empty("tech")}))

	assert.FileExists(t, filepath.Join(dir, "fashion.json"))
	assert.FileExists(t, filepath.Join(dir, "tech.json"))
}

func TestNilTableLookups(t *testing.T) {
	var table *Table

	_, ok := table.PillarAverage("brand_presence")
	assert.False(t, ok)

	_, ok = table.SignalQuartiles("logo_visible")
	assert.False(t, ok)
}

type closeFailWriter struct {
	bytes.Buffer
	closeErr error
}

func (w *closeFailWriter) Close() error { return w.closeErr }

func TestWriteTable_ReportsCloseError(t *testing.T) {
	w := &closeFailWriter{closeErr: errors.New("disk full")}

	err := writeTable(w, &Table{Category: "snacks"})
	require.Error(t, err)
	assert.ErrorIs(t, err, w.closeErr)
	assert.Contains(t, w.String(), `"category": "snacks"`)

	require.NoError(t, writeTable(&closeFailWriter{}, &Table{Category: "snacks"}))
}
