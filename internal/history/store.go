// Package history persists run results so past pass rates can be
// inspected with the -H flag.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nrser/drt/internal/runner"
)

// Run is one recorded invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Attempted int
	Passed    int
	Failed    int
	FailFast  bool
}

// TargetRow is one target within a recorded run.
type TargetRow struct {
	Name      string
	Duration  time.Duration
	Attempted int
	Failed    int
	Error     string
}

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores the results of one invocation and returns its id.
func (s *Store) RecordRun(startedAt time.Time, results []*runner.TargetResult, failFast bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := runner.Sum(results)
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, duration_ms, attempted, passed, failed, fail_fast)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, startedAt.UTC(), totals.Duration.Milliseconds(),
		totals.Attempted, totals.Passed, totals.Failed, boolToInt(failFast))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_targets (run_id, name, duration_ms, attempted, failed, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		var errMsg sql.NullString
		if r.Err != nil {
			errMsg = sql.NullString{String: r.Err.Error(), Valid: true}
		}

		_, err := stmt.Exec(id, r.Name, r.Duration.Milliseconds(), r.Attempted, r.Failed, errMsg)
		if err != nil {
			return "", fmt.Errorf("insert target %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return id, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, started_at, duration_ms, attempted, passed, failed, fail_fast
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run

	for rows.Next() {
		run := &Run{}
		var durationMS int64
		var failFast int

		err := rows.Scan(&run.ID, &run.StartedAt, &durationMS,
			&run.Attempted, &run.Passed, &run.Failed, &failFast)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.FailFast = failFast != 0
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// RunTargets returns the per-target rows for one run.
func (s *Store) RunTargets(runID string) ([]*TargetRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT name, duration_ms, attempted, failed, error
		FROM run_targets WHERE run_id = ? ORDER BY name ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run targets: %w", err)
	}
	defer rows.Close()

	var targets []*TargetRow

	for rows.Next() {
		row := &TargetRow{}
		var durationMS int64
		var errMsg sql.NullString

		if err := rows.Scan(&row.Name, &durationMS, &row.Attempted, &row.Failed, &errMsg); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}

		row.Duration = time.Duration(durationMS) * time.Millisecond
		if errMsg.Valid {
			row.Error = errMsg.String
		}

		targets = append(targets, row)
	}

	return targets, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
