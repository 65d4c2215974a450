// Package history persists run snapshots so rankings can be compared
// across commits.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"covimpact/internal/analyzer"
	"covimpact/internal/errors"
	"covimpact/internal/logging"
)

// Store is the run-history database. It lives under
// <root>/.covimpact/history.db.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Run is one persisted analysis snapshot.
type Run struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	Root            string    `json:"root"`
	Language        string    `json:"language"`
	Functions       int       `json:"functions"`
	Edges           int       `json:"edges"`
	UnresolvedCalls int       `json:"unresolvedCalls"`
	SkippedFiles    int       `json:"skippedFiles"`
	ModelVersion    string    `json:"modelVersion,omitempty"`
	NeutralFallback bool      `json:"neutralFallback,omitempty"`
}

// RunEntry is one ranked row inside a persisted run.
type RunEntry struct {
	RunID      string  `json:"runId"`
	Rank       int     `json:"rank"`
	FunctionID string  `json:"functionId"`
	Impact     float64 `json:"impact"`
	Complexity float64 `json:"complexity"`
	Confidence float64 `json:"confidence"`
	Priority   float64 `json:"priority"`
}

// Open opens or creates the history database under root.
func Open(root string, logger *logging.Logger) (*Store, error) {
	dir := filepath.Join(root, ".covimpact")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New(errors.HistoryUnavailable, "failed to create history directory", err)
	}
	dbPath := filepath.Join(dir, "history.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.New(errors.HistoryUnavailable, "failed to open history database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between safety and performance
		"PRAGMA foreign_keys=ON",    // Enable foreign key constraints
		"PRAGMA busy_timeout=5000",  // Wait up to 5 seconds on lock
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.New(errors.HistoryUnavailable, "failed to set pragma", err)
		}
	}

	s := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := s.initializeSchema(); err != nil {
		conn.Close()
		return nil, errors.New(errors.HistoryUnavailable, "failed to initialize schema", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initializeSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	root TEXT NOT NULL,
	language TEXT NOT NULL,
	functions INTEGER NOT NULL,
	edges INTEGER NOT NULL,
	unresolved_calls INTEGER NOT NULL,
	skipped_files INTEGER NOT NULL,
	model_version TEXT NOT NULL DEFAULT '',
	neutral_fallback INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_entries (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank INTEGER NOT NULL,
	function_id TEXT NOT NULL,
	impact REAL NOT NULL,
	complexity REAL NOT NULL,
	confidence REAL NOT NULL,
	priority REAL NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_run_entries_function ON run_entries(function_id);
`
	_, err := s.conn.Exec(schema)
	return err
}

// withTx executes fn within a transaction, rolling back on error or
// panic.
func (s *Store) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveRun persists a result snapshot and returns the new run ID.
func (s *Store) SaveRun(root, language string, result *analyzer.Result) (string, error) {
	runID := uuid.New().String()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, created_at, root, language, functions, edges,
				unresolved_calls, skipped_files, model_version, neutral_fallback)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, createdAt, root, language,
			result.Stats.Functions, result.Stats.Edges,
			result.Stats.UnresolvedCalls, result.Stats.SkippedFiles,
			result.Stats.ModelVersion, boolToInt(result.Stats.NeutralFallback))
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO run_entries (run_id, rank, function_id, impact, complexity, confidence, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range result.Entries {
			if _, err := stmt.Exec(runID, e.Rank, e.ID, e.Impact, e.Complexity, e.Confidence, e.Priority); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", errors.New(errors.HistoryUnavailable, "failed to save run", err)
	}

	s.logger.Debug("run saved", map[string]interface{}{
		"runId":   runID,
		"entries": len(result.Entries),
	})
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(`
		SELECT id, created_at, root, language, functions, edges,
			unresolved_calls, skipped_files, model_version, neutral_fallback
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.New(errors.HistoryUnavailable, "failed to list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		var fallback int
		if err := rows.Scan(&r.ID, &createdAt, &r.Root, &r.Language, &r.Functions,
			&r.Edges, &r.UnresolvedCalls, &r.SkippedFiles, &r.ModelVersion, &fallback); err != nil {
			return nil, errors.New(errors.HistoryUnavailable, "failed to scan run", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.NeutralFallback = fallback != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Entries returns a run's ranked rows in rank order.
func (s *Store) Entries(runID string, limit int) ([]RunEntry, error) {
	query := `
		SELECT run_id, rank, function_id, impact, complexity, confidence, priority
		FROM run_entries WHERE run_id = ? ORDER BY rank`
	args := []interface{}{runID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, errors.New(errors.HistoryUnavailable, "failed to load run entries", err)
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		if err := rows.Scan(&e.RunID, &e.Rank, &e.FunctionID, &e.Impact,
			&e.Complexity, &e.Confidence, &e.Priority); err != nil {
			return nil, errors.New(errors.HistoryUnavailable, "failed to scan run entry", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
