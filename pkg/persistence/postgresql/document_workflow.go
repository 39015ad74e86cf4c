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

// DocumentWorkflowRepository handles approval chain database operations.
type DocumentWorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentWorkflowRepository creates a new document workflow repository.
func NewDocumentWorkflowRepository(db *sql.DB, logger *slog.Logger) *DocumentWorkflowRepository {
	return &DocumentWorkflowRepository{db: db, logger: logger}
}

const documentWorkflowColumns = `
	id
  , document_id
  , workflow_name
  , current_step
  , total_steps
  , steps
  , status
  , created_at
  , updated_at
  , completed_at
`

func scanDocumentWorkflow(row templateScanner) (*models.DocumentWorkflow, error) {
	var (
		workflow models.DocumentWorkflow
		steps    []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.DocumentID,
		&workflow.WorkflowName,
		&workflow.CurrentStep,
		&workflow.TotalSteps,
		&steps,
		&workflow.Status,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&workflow.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &workflow.Steps); err != nil {
			return nil, fmt.Errorf("failed to parse steps: %w", err)
		}
	}

	return &workflow, nil
}

// Save upserts the document workflow.
func (dr *DocumentWorkflowRepository) Save(ctx context.Context, workflow *models.DocumentWorkflow) error {
	var (
		steps []byte
		err   error
	)

	if workflow.Steps != nil {
		steps, err = json.Marshal(workflow.Steps)
		if err != nil {
			return fmt.Errorf("failed to serialize steps: %w", err)
		}
	}

	query := `
		INSERT INTO document_workflows (
			id, document_id, workflow_name, current_step, total_steps,
			steps, status, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			current_step = EXCLUDED.current_step
		  , steps = EXCLUDED.steps
		  , status = EXCLUDED.status
		  , updated_at = EXCLUDED.updated_at
		  , completed_at = EXCLUDED.completed_at
	`

	_, err = dr.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.DocumentID,
		workflow.WorkflowName,
		workflow.CurrentStep,
		workflow.TotalSteps,
		steps,
		workflow.Status,
		workflow.CreatedAt,
		workflow.UpdatedAt,
		workflow.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// GetByID returns a document workflow by its identifier.
func (dr *DocumentWorkflowRepository) GetByID(ctx context.Context, id string) (*models.DocumentWorkflow, error) {
	query := `SELECT ` + documentWorkflowColumns + ` FROM document_workflows WHERE id = $1`

	workflow, err := scanDocumentWorkflow(dr.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrDocumentWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get document workflow %s: %w", id, err)
	}

	return workflow, nil
}

// List returns one page of document workflows, newest created first.
func (dr *DocumentWorkflowRepository) List(ctx context.Context, opts persistence.ListDocumentWorkflowsOptions) (*persistence.DocumentWorkflowListResult, error) {
	page, limit := clampPage(opts.Page, opts.Limit)

	where := " WHERE TRUE"
	args := []any{}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if opts.DocumentID != "" {
		args = append(args, opts.DocumentID)
		where += fmt.Sprintf(" AND document_id = $%d", len(args))
	}

	var total int64

	err := dr.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_workflows`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count document workflows: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + documentWorkflowColumns + ` FROM document_workflows` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := dr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query document workflows: %w", err)
	}

	defer closeRows(ctx, dr.logger, rows)

	workflows := make([]*models.DocumentWorkflow, 0)

	for rows.Next() {
		workflow, err := scanDocumentWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document workflows: %w", err)
	}

	return &persistence.DocumentWorkflowListResult{
		Workflows:  workflows,
		Total:      total,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListByDocumentID returns every approval chain attached to one document.
func (dr *DocumentWorkflowRepository) ListByDocumentID(ctx context.Context, documentID string) ([]*models.DocumentWorkflow, error) {
	query := `SELECT ` + documentWorkflowColumns + `
		FROM document_workflows
		WHERE document_id = $1
		ORDER BY created_at DESC`

	rows, err := dr.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query document workflows for document %s: %w", documentID, err)
	}

	defer closeRows(ctx, dr.logger, rows)

	workflows := make([]*models.DocumentWorkflow, 0)

	for rows.Next() {
		workflow, err := scanDocumentWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document workflows: %w", err)
	}

	return workflows, nil
}

// Stats counts document workflows by status. Cancelled and failed land in
// the same bucket.
func (dr *DocumentWorkflowRepository) Stats(ctx context.Context) (*models.DocumentWorkflowStats, error) {
	rows, err := dr.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM document_workflows GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query document workflow stats: %w", err)
	}

	defer closeRows(ctx, dr.logger, rows)

	stats := &models.DocumentWorkflowStats{}

	for rows.Next() {
		var (
			status string
			count  int64
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan document workflow stats: %w", err)
		}

		stats.Total += count

		switch models.DocumentWorkflowStatus(status) {
		case models.DocumentWorkflowStatusInProgress:
			stats.InProgress = count
		case models.DocumentWorkflowStatusCompleted:
			stats.Completed = count
		case models.DocumentWorkflowStatusCancelled, models.DocumentWorkflowStatusFailed:
			stats.Cancelled += count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document workflow stats: %w", err)
	}

	return stats, nil
}
