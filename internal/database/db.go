package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the benchmark store connection with its prepared statements
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool records the pool limits applied to the connection
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool applies pool limits to db
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens (creating if needed) the sqlite file at dbPath and migrates it
func NewDB(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Readers dominate; WAL allows them alongside the single seeding writer.
	pool := NewConnectionPool(db, 8, 4, 30*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Benchmark database initialized", "path", dbPath, "max_open_conns", pool.maxOpenConns)

	return database, nil
}

func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pillar_benchmarks (
			category TEXT NOT NULL,
			pillar TEXT NOT NULL,
			average REAL NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (category, pillar)
		)`,

		// signal = '' holds the distribution of overall scores
		`CREATE TABLE IF NOT EXISTS signal_benchmarks (
			category TEXT NOT NULL,
			signal TEXT NOT NULL,
			p25 REAL NOT NULL,
			p50 REAL NOT NULL,
			p75 REAL NOT NULL,
			p90 REAL NOT NULL DEFAULT 0,
			sample_size INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (category, signal)
		)`,

		// empty scope columns match any value
		`CREATE TABLE IF NOT EXISTS weight_overrides (
			category TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL DEFAULT '',
			funnel_stage TEXT NOT NULL DEFAULT '',
			pillar TEXT NOT NULL,
			weight REAL NOT NULL CHECK (weight >= 0),
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (category, platform, funnel_stage, pillar)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_weight_overrides_pillar ON weight_overrides(pillar)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"upsert_pillar": `INSERT INTO pillar_benchmarks (category, pillar, average, updated_at)
			VALUES (?, ?, ?, ?) ON CONFLICT(category, pillar) DO UPDATE SET
			average = excluded.average,
			updated_at = excluded.updated_at`,

		"upsert_signal": `INSERT INTO signal_benchmarks (category, signal, p25, p50, p75, p90, sample_size, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(category, signal) DO UPDATE SET
			p25 = excluded.p25,
			p50 = excluded.p50,
			p75 = excluded.p75,
			p90 = excluded.p90,
			sample_size = excluded.sample_size,
			updated_at = excluded.updated_at`,

		"upsert_weight": `INSERT INTO weight_overrides (category, platform, funnel_stage, pillar, weight, updated_at)
			VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(category, platform, funnel_stage, pillar) DO UPDATE SET
			weight = excluded.weight,
			updated_at = excluded.updated_at`,

		"get_pillars": `SELECT pillar, average FROM pillar_benchmarks WHERE category = ?`,

		"get_signals": `SELECT signal, p25, p50, p75, p90, sample_size FROM signal_benchmarks WHERE category = ?`,

		"get_weights": `SELECT category, platform, funnel_stage, pillar, weight FROM weight_overrides
			WHERE category IN ('', ?) AND platform IN ('', ?) AND funnel_stage IN ('', ?)`,

		"list_categories": `SELECT category FROM pillar_benchmarks
			UNION SELECT category FROM signal_benchmarks
			ORDER BY category`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the prepared statements and the connection
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
