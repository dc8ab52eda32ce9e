package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clinical-bridge/clinbridge/internal/pipeline"
)

// ErrNotFound is returned when no run exists for the requested ID.
var ErrNotFound = errors.New("workflow run not found")

// Run is a persisted workflow run summary.
type Run struct {
	Summary   pipeline.WorkflowSummary `json:"summary"`
	CreatedAt time.Time                `json:"created_at"`
}

// RunDAO provides database operations for finished workflow runs. The
// pipeline core never touches the store; callers persist summaries after a
// run finishes.
type RunDAO interface {
	// Save persists a workflow summary.
	Save(ctx context.Context, summary pipeline.WorkflowSummary) error

	// GetByID retrieves a run by workflow ID.
	GetByID(ctx context.Context, id string) (*Run, error)

	// List lists runs newest first, optionally filtered by status.
	// A non-positive limit returns all runs.
	List(ctx context.Context, status pipeline.WorkflowStatus, limit int) ([]*Run, error)

	// Delete removes a run.
	Delete(ctx context.Context, id string) error
}

type runDAO struct {
	db *DB
}

// NewRunDAO creates a run DAO backed by the given database.
func NewRunDAO(db *DB) RunDAO {
	return &runDAO{db: db}
}

func (d *runDAO) Save(ctx context.Context, summary pipeline.WorkflowSummary) error {
	if summary.WorkflowID == "" {
		return fmt.Errorf("workflow id is required")
	}

	phasesJSON, err := json.Marshal(summary.Phases)
	if err != nil {
		return fmt.Errorf("serializing phases: %w", err)
	}

	tokens := summary.TotalTokens

	_, err = d.db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO workflow_runs
			(id, status, patient_id, payer, procedure, total_duration_ms,
			 input_tokens, output_tokens, phases, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.WorkflowID,
		summary.Status.String(),
		summary.PatientID,
		summary.Payer,
		summary.Procedure,
		summary.TotalDurationMS,
		tokens.InputTokens,
		tokens.OutputTokens,
		string(phasesJSON),
		summary.StartedAt,
		summary.CompletedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving workflow run: %w", err)
	}
	return nil
}

func (d *runDAO) GetByID(ctx context.Context, id string) (*Run, error) {
	row := d.db.conn.QueryRowContext(ctx, `
		SELECT id, status, patient_id, payer, procedure, total_duration_ms,
		       input_tokens, output_tokens, phases, started_at, completed_at, created_at
		FROM workflow_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading workflow run: %w", err)
	}
	return run, nil
}

func (d *runDAO) List(ctx context.Context, status pipeline.WorkflowStatus, limit int) ([]*Run, error) {
	query := `
		SELECT id, status, patient_id, payer, procedure, total_duration_ms,
		       input_tokens, output_tokens, phases, started_at, completed_at, created_at
		FROM workflow_runs`
	args := []any{}

	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status.String())
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing workflow runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workflow run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (d *runDAO) Delete(ctx context.Context, id string) error {
	res, err := d.db.conn.ExecContext(ctx, "DELETE FROM workflow_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting workflow run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		status      string
		phasesJSON  string
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&run.Summary.WorkflowID,
		&status,
		&run.Summary.PatientID,
		&run.Summary.Payer,
		&run.Summary.Procedure,
		&run.Summary.TotalDurationMS,
		&run.Summary.TotalTokens.InputTokens,
		&run.Summary.TotalTokens.OutputTokens,
		&phasesJSON,
		&startedAt,
		&completedAt,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Summary.Status = pipeline.WorkflowStatus(status)
	if startedAt.Valid {
		run.Summary.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.Summary.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(phasesJSON), &run.Summary.Phases); err != nil {
		return nil, fmt.Errorf("deserializing phases: %w", err)
	}
	return &run, nil
}
