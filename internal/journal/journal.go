// Package journal persists execution traces to SQLite.
//
// The journal is strictly observational: it records the step stream the
// engine emits and is never read back during execution, so backward runs
// stay tape-free. It exists for the trace command and for post-mortem
// inspection with any sqlite client.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/janus-vm/janus/internal/engine"
	"github.com/janus-vm/janus/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Run directions.
const (
	DirectionForward  = "forward"
	DirectionInverse  = "inverse"
	DirectionGradient = "gradient"
)

// Journal is a SQLite-backed trace store. One writer at a time; WAL mode
// keeps concurrent readers unblocked.
type Journal struct {
	db *sql.DB
}

// Open creates or opens a journal database at the given path. Idempotent.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under step bursts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Run is one open journaled execution. It implements engine.Observer;
// attach it with engine.WithObserver and check Err after the run.
type Run struct {
	// ID is the run's UUID.
	ID string

	j   *Journal
	err error
}

// BeginRun registers a new run and returns its recorder.
func (j *Journal) BeginRun(ctx context.Context, program, direction string) (*Run, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, program, direction, ir_version, runtime_version)
		VALUES (?, ?, ?, ?, ?)
	`, id, program, direction, ir.IRVersion, ir.RuntimeVersion)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Run{ID: id, j: j}, nil
}

// OnStep records one executed statement. The Observer contract gives no
// error return, so the first write failure is stashed and later steps are
// dropped; Err surfaces it after the run.
func (r *Run) OnStep(ev engine.StepEvent) {
	if r.err != nil {
		return
	}
	_, err := r.j.db.Exec(`
		INSERT INTO steps (run_id, seq, path, op, fn, target, before_value, after_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, ev.Seq, ev.Path, string(ev.Op), string(ev.Fn), ev.Target, ev.Before, ev.After)
	if err != nil {
		r.err = fmt.Errorf("journal step %d: %w", ev.Seq, err)
	}
}

// Err returns the first write failure, if any.
func (r *Run) Err() error {
	return r.err
}

// RunInfo is a recorded run's header.
type RunInfo struct {
	ID             string
	Program        string
	Direction      string
	IRVersion      string
	RuntimeVersion string
}

// Step is one recorded statement.
type Step struct {
	RunID  string
	Seq    int64
	Path   string
	Op     string
	Fn     string
	Target string
	Before string
	After  string
}

// Runs lists recorded runs in insertion order.
func (j *Journal) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, program, direction, ir_version, runtime_version
		FROM runs ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var ri RunInfo
		if err := rows.Scan(&ri.ID, &ri.Program, &ri.Direction, &ri.IRVersion, &ri.RuntimeVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

// Steps returns a run's statements in execution order.
func (j *Journal) Steps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, path, op, fn, target, before_value, after_value
		FROM steps WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var s Step
		if err := rows.Scan(&s.RunID, &s.Seq, &s.Path, &s.Op, &s.Fn, &s.Target, &s.Before, &s.After); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
