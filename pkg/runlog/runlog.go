// Package runlog persists the outcome of finished runs to a SQLite
// database so `runtab runs` can show history across sessions. Only run
// metadata is stored; result rows never leave memory.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// schemaDDL defines the run history table.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL UNIQUE,
    command TEXT NOT NULL,
    state TEXT NOT NULL,
    exit_code INTEGER NOT NULL DEFAULT 0,
    rows_loaded INTEGER NOT NULL DEFAULT 0,
    rows_dropped INTEGER NOT NULL DEFAULT 0,
    partial INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL,
    ended_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state);
`

// Run is one recorded run outcome.
type Run struct {
	RunID       string
	Command     string
	State       string
	ExitCode    int
	RowsLoaded  int
	RowsDropped int
	Partial     bool
	StartedAt   time.Time
	EndedAt     time.Time
}

// QueryOpts filters List results.
type QueryOpts struct {
	// State restricts to runs with this terminal state (empty = all).
	State string

	// Limit restricts the number of results, newest first (0 = no limit).
	Limit int
}

// Store is a run history log backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the run history database at path and applies the
// schema. The connection uses WAL journal mode and a 5-second busy timeout.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection. Safe to call multiple times.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts one finished run.
func (s *Store) Record(ctx context.Context, r Run) error {
	partial := 0
	if r.Partial {
		partial = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, command, state, exit_code, rows_loaded, rows_dropped, partial, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Command, r.State, r.ExitCode, r.RowsLoaded, r.RowsDropped, partial,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.EndedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

// List returns recorded runs matching opts, newest first.
func (s *Store) List(ctx context.Context, opts QueryOpts) ([]Run, error) {
	query := `SELECT run_id, command, state, exit_code, rows_loaded, rows_dropped, partial, started_at, ended_at FROM runs`
	var args []any
	var conditions []string
	if opts.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, opts.State)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var r Run
		var partial int
		var started, ended string
		if err := rows.Scan(&r.RunID, &r.Command, &r.State, &r.ExitCode,
			&r.RowsLoaded, &r.RowsDropped, &partial, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Partial = partial != 0
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
