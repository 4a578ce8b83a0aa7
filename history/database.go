// Package history stores scan results in PostgreSQL so past runs can be
// audited. The sink is optional; the CLI works without it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/berylliumsec/eclipse-go/config"
	"github.com/berylliumsec/eclipse-go/ner"
)

// ScanDB defines the interface for scan-history operations.
type ScanDB interface {
	// StoreResult records one line verdict under a run id.
	StoreResult(ctx context.Context, runID string, result ner.LineResult) error

	// GetRunResults retrieves every verdict recorded for a run.
	GetRunResults(ctx context.Context, runID string) ([]ner.LineResult, error)

	// CleanupOldRuns removes results older than the specified duration.
	CleanupOldRuns(ctx context.Context, olderThan time.Duration) (int64, error)

	// Close closes the database connection.
	Close() error
}

// PostgresScanDB implements ScanDB for PostgreSQL.
type PostgresScanDB struct {
	db *sql.DB
}

// NewPostgresScanDB opens a connection pool and ensures the results table
// exists.
func NewPostgresScanDB(cfg config.DatabaseConfig) (*PostgresScanDB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetimeDuration())

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTableIfNotExists(db); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PostgresScanDB{db: db}, nil
}

// createTableIfNotExists creates the scan_results table if it doesn't exist.
func createTableIfNotExists(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS scan_results (
		id SERIAL PRIMARY KEY,
		run_id VARCHAR(36) NOT NULL,
		line TEXT NOT NULL,
		label VARCHAR(50) NOT NULL,
		confidence REAL NOT NULL,
		flagged BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_scan_results_run_id ON scan_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_scan_results_created_at ON scan_results(created_at);
	CREATE INDEX IF NOT EXISTS idx_scan_results_label ON scan_results(label);
	`

	_, err := db.Exec(query)
	return err
}

// StoreResult records one line verdict under a run id.
func (p *PostgresScanDB) StoreResult(ctx context.Context, runID string, result ner.LineResult) error {
	query := `
	INSERT INTO scan_results (run_id, line, label, confidence, flagged, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := p.db.ExecContext(ctx, query, runID, result.Text, result.Label, result.Confidence, result.Flagged)
	return err
}

// GetRunResults retrieves every verdict recorded for a run, oldest first.
func (p *PostgresScanDB) GetRunResults(ctx context.Context, runID string) ([]ner.LineResult, error) {
	query := `
	SELECT line, label, confidence, flagged FROM scan_results
	WHERE run_id = $1
	ORDER BY id
	`

	rows, err := p.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []ner.LineResult
	for rows.Next() {
		var r ner.LineResult
		if err := rows.Scan(&r.Text, &r.Label, &r.Confidence, &r.Flagged); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CleanupOldRuns removes results older than the specified duration.
func (p *PostgresScanDB) CleanupOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
	DELETE FROM scan_results
	WHERE created_at < NOW() - INTERVAL '%d seconds'
	`

	result, err := p.db.ExecContext(ctx, fmt.Sprintf(query, int(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (p *PostgresScanDB) Close() error {
	return p.db.Close()
}

// InMemoryScanDB implements ScanDB in memory, used when PostgreSQL is not
// configured but a caller still wants run results retained.
type InMemoryScanDB struct {
	results map[string][]ner.LineResult
}

// NewInMemoryScanDB creates a new in-memory scan history.
func NewInMemoryScanDB() *InMemoryScanDB {
	return &InMemoryScanDB{results: make(map[string][]ner.LineResult)}
}

// StoreResult records one line verdict in memory.
func (m *InMemoryScanDB) StoreResult(ctx context.Context, runID string, result ner.LineResult) error {
	m.results[runID] = append(m.results[runID], result)
	return nil
}

// GetRunResults retrieves every verdict recorded for a run.
func (m *InMemoryScanDB) GetRunResults(ctx context.Context, runID string) ([]ner.LineResult, error) {
	return m.results[runID], nil
}

// CleanupOldRuns is a no-op for in-memory storage.
func (m *InMemoryScanDB) CleanupOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

// Close is a no-op for in-memory storage.
func (m *InMemoryScanDB) Close() error {
	return nil
}
