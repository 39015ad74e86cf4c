package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
)

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , template_id
  , workflow_name
  , trigger_type
  , trigger_data
  , status
  , actions
  , error
  , created_at
  , started_at
  , completed_at
`

func scanExecution(row templateScanner) (*models.WorkflowExecution, error) {
	var (
		execution   models.WorkflowExecution
		templateID  sql.NullString
		triggerData []byte
		actions     []byte
	)

	err := row.Scan(
		&execution.ID,
		&templateID,
		&execution.WorkflowName,
		&execution.TriggerType,
		&triggerData,
		&execution.Status,
		&actions,
		&execution.Error,
		&execution.CreatedAt,
		&execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if templateID.Valid {
		execution.TemplateID = &templateID.String
	}

	if len(triggerData) > 0 {
		if err := json.Unmarshal(triggerData, &execution.TriggerData); err != nil {
			return nil, fmt.Errorf("failed to parse trigger data: %w", err)
		}
	}

	if err := json.Unmarshal(actions, &execution.Actions); err != nil {
		return nil, fmt.Errorf("failed to parse actions: %w", err)
	}

	return &execution, nil
}

// Save upserts the execution.
func (er *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	actions, err := json.Marshal(execution.Actions)
	if err != nil {
		return fmt.Errorf("failed to serialize actions: %w", err)
	}

	var triggerData []byte

	if execution.TriggerData != nil {
		triggerData, err = json.Marshal(execution.TriggerData)
		if err != nil {
			return fmt.Errorf("failed to serialize trigger data: %w", err)
		}
	}

	query := `
		INSERT INTO workflow_executions (
			id, template_id, workflow_name, trigger_type, trigger_data,
			status, actions, error, created_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , error = EXCLUDED.error
		  , started_at = EXCLUDED.started_at
		  , completed_at = EXCLUDED.completed_at
	`

	_, err = er.db.ExecContext(ctx, query,
		execution.ID,
		execution.TemplateID,
		execution.WorkflowName,
		execution.TriggerType,
		triggerData,
		execution.Status,
		actions,
		execution.Error,
		execution.CreatedAt,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

// GetByID returns an execution by its identifier.
func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1`

	execution, err := scanExecution(er.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// List returns one page of executions, newest created first.
func (er *ExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	page, limit := clampPage(opts.Page, opts.Limit)

	where := " WHERE TRUE"
	args := []any{}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if opts.TemplateID != "" {
		args = append(args, opts.TemplateID)
		where += fmt.Sprintf(" AND template_id = $%d", len(args))
	}

	var total int64

	err := er.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_executions`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + executionColumns + ` FROM workflow_executions` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, er.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return &persistence.ExecutionListResult{
		Executions: executions,
		Total:      total,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListRecent returns up to limit executions, most recently created first.
func (er *ExecutionRepository) ListRecent(ctx context.Context, limit int) ([]*models.WorkflowExecution, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + executionColumns + `
		FROM workflow_executions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := er.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent executions: %w", err)
	}

	defer closeRows(ctx, er.logger, rows)

	executions := make([]*models.WorkflowExecution, 0, limit)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// Stats counts executions by status, optionally scoped to one template.
func (er *ExecutionRepository) Stats(ctx context.Context, templateID string) (*models.ExecutionStats, error) {
	query := `SELECT status, COUNT(*) FROM workflow_executions`
	args := []any{}

	if templateID != "" {
		query += ` WHERE template_id = $1`
		args = append(args, templateID)
	}

	query += ` GROUP BY status`

	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution stats: %w", err)
	}

	defer closeRows(ctx, er.logger, rows)

	stats := &models.ExecutionStats{}

	for rows.Next() {
		var (
			status string
			count  int64
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan execution stats: %w", err)
		}

		stats.Total += count

		switch models.ExecutionStatus(status) {
		case models.ExecutionStatusQueued:
			stats.Queued = count
		case models.ExecutionStatusRunning:
			stats.Running = count
		case models.ExecutionStatusCompleted:
			stats.Completed = count
		case models.ExecutionStatusFailed:
			stats.Failed = count
		case models.ExecutionStatusCancelled:
			stats.Cancelled = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution stats: %w", err)
	}

	return stats, nil
}

// Transition applies the update only when the current status is one of
// expected. The guard lives in the UPDATE's WHERE clause, so concurrent
// transitions on the same execution resolve to one winner in the database.
func (er *ExecutionRepository) Transition(ctx context.Context, id string, expected []models.ExecutionStatus, update persistence.ExecutionUpdate) (*models.WorkflowExecution, error) {
	if len(expected) == 0 {
		return nil, persistence.NewExecutionError("Transition", id, persistence.ErrExecutionStatusConflict)
	}

	args := []any{update.Status, update.Error, update.StartedAt, update.CompletedAt, id}
	placeholders := ""

	for i, status := range expected {
		if i > 0 {
			placeholders += ", "
		}

		args = append(args, string(status))
		placeholders += fmt.Sprintf("$%d", len(args))
	}

	query := `
		UPDATE workflow_executions SET
			status = $1
		  , error = CASE WHEN $2 = '' THEN error ELSE $2 END
		  , started_at = COALESCE($3, started_at)
		  , completed_at = COALESCE($4, completed_at)
		WHERE id = $5 AND status IN (` + placeholders + `)
		RETURNING ` + executionColumns

	execution, err := scanExecution(er.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing row from a status conflict.
		_, getErr := er.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}

		return nil, persistence.NewExecutionError("Transition", id, persistence.ErrExecutionStatusConflict)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("Transition", id, err)
	}

	return execution, nil
}
