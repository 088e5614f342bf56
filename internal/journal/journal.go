// Package journal keeps an SQLite audit trail of workflow runs and the
// steps each run dispatched.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/executor"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by Run for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Journal implements executor.Journal on SQLite.
type Journal struct {
	db *sql.DB
}

var _ executor.Journal = (*Journal)(nil)

// Open opens (or creates) the journal database at path. ":memory:" keeps
// everything in memory.
func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal: empty path")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	// One connection: an in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: initialize tables: %w", err)
	}
	return j, nil
}

func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workflow_runs (
		id TEXT PRIMARY KEY,
		workflow TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		total INTEGER NOT NULL,
		dispatched INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS workflow_steps (
		run_id TEXT NOT NULL,
		step_index INTEGER NOT NULL,
		action TEXT NOT NULL,
		data TEXT NOT NULL,
		delay_ms INTEGER NOT NULL,
		error_message TEXT,
		dispatched_at TIMESTAMP NOT NULL,
		FOREIGN KEY(run_id) REFERENCES workflow_runs(id),
		PRIMARY KEY(run_id, step_index)
	);

	CREATE INDEX IF NOT EXISTS idx_workflow_runs_started_at ON workflow_runs(started_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *Journal) StartRun(ctx context.Context, r executor.Report) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (id, workflow, status, total, started_at)
		VALUES (?, ?, 'running', ?, ?)
	`, r.RunID, r.Workflow, r.Total, r.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (j *Journal) RecordStep(ctx context.Context, runID string, s executor.StepRecord) error {
	data, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal step data: %w", err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO workflow_steps (run_id, step_index, action, data, delay_ms, error_message, dispatched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, s.Index, string(s.Type), string(data), s.Delay, nullString(s.Error), s.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert step: %w", err)
	}
	return nil
}

func (j *Journal) FinishRun(ctx context.Context, r executor.Report) error {
	result, err := j.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = ?, dispatched = ?, error_message = ?, finished_at = ?
		WHERE id = ?
	`, string(r.Status), r.Dispatched, nullString(r.Error), r.FinishedAt.UTC(), r.RunID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, r.RunID)
	}
	return nil
}

// Run is a journaled run with its steps.
type Run struct {
	ID         string                `json:"id"`
	Workflow   string                `json:"workflow"`
	Status     string                `json:"status"`
	Total      int                   `json:"total"`
	Dispatched int                   `json:"dispatched"`
	Error      string                `json:"error,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Steps      []executor.StepRecord `json:"steps,omitempty"`
}

// Recent lists the latest runs, newest first, without their steps.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, workflow, status, total, dispatched, error_message, started_at, finished_at
		FROM workflow_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return runs, nil
}

// Run loads one run and its steps in dispatch order.
func (j *Journal) Run(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, workflow, status, total, dispatched, error_message, started_at, finished_at
		FROM workflow_runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT step_index, action, data, delay_ms, error_message, dispatched_at
		FROM workflow_steps
		WHERE run_id = ?
		ORDER BY step_index
	`, id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s       executor.StepRecord
			action  string
			data    string
			errText sql.NullString
		)
		if err := rows.Scan(&s.Index, &action, &data, &s.Delay, &errText, &s.At); err != nil {
			return Run{}, fmt.Errorf("failed to scan step: %w", err)
		}
		s.Type = workflow.ActionType(action)
		s.Error = errText.String
		if err := json.Unmarshal([]byte(data), &s.Data); err != nil {
			return Run{}, fmt.Errorf("failed to unmarshal step data: %w", err)
		}
		run.Steps = append(run.Steps, s)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("rows iteration error: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run      Run
		errText  sql.NullString
		finished sql.NullTime
	)
	err := s.Scan(&run.ID, &run.Workflow, &run.Status, &run.Total, &run.Dispatched, &errText, &run.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Error = errText.String
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
