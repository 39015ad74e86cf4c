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

// TemplateRepository handles workflow template database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

const templateColumns = `
	id
  , name
  , description
  , category
  , trigger_type
  , trigger_config
  , actions
  , is_active
  , is_public
  , usage_count
  , created_at
  , updated_at
`

type templateScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row templateScanner) (*models.WorkflowTemplate, error) {
	var (
		template      models.WorkflowTemplate
		triggerConfig []byte
		actions       []byte
	)

	err := row.Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&template.Category,
		&template.TriggerType,
		&triggerConfig,
		&actions,
		&template.IsActive,
		&template.IsPublic,
		&template.UsageCount,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerConfig, &template.TriggerConfig); err != nil {
		return nil, fmt.Errorf("failed to parse trigger config: %w", err)
	}

	if err := json.Unmarshal(actions, &template.Actions); err != nil {
		return nil, fmt.Errorf("failed to parse actions: %w", err)
	}

	return &template, nil
}

// Save upserts the template.
func (tr *TemplateRepository) Save(ctx context.Context, template *models.WorkflowTemplate) error {
	triggerConfig, err := json.Marshal(template.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to serialize trigger config: %w", err)
	}

	actions, err := json.Marshal(template.Actions)
	if err != nil {
		return fmt.Errorf("failed to serialize actions: %w", err)
	}

	query := `
		INSERT INTO workflow_templates (
			id, name, description, category, trigger_type, trigger_config,
			actions, is_active, is_public, usage_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , category = EXCLUDED.category
		  , trigger_config = EXCLUDED.trigger_config
		  , actions = EXCLUDED.actions
		  , is_active = EXCLUDED.is_active
		  , is_public = EXCLUDED.is_public
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = tr.db.ExecContext(ctx, query,
		template.ID,
		template.Name,
		template.Description,
		template.Category,
		template.TriggerType,
		triggerConfig,
		actions,
		template.IsActive,
		template.IsPublic,
		template.UsageCount,
		template.CreatedAt,
		template.UpdatedAt,
	)
	if err != nil {
		return persistence.NewTemplateError("Save", template.ID, err)
	}

	return nil
}

// GetByID returns a template by its identifier.
func (tr *TemplateRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workflow_templates WHERE id = $1`

	template, err := scanTemplate(tr.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return nil, persistence.NewTemplateError("GetByID", id, err)
	}

	return template, nil
}

// Delete removes a template. Executions keep their copied action lists.
func (tr *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := tr.db.ExecContext(ctx, `DELETE FROM workflow_templates WHERE id = $1`, id)
	if err != nil {
		return persistence.NewTemplateError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewTemplateError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

// List returns one page of templates, newest created first.
func (tr *TemplateRepository) List(ctx context.Context, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	page, limit := clampPage(opts.Page, opts.Limit)

	where := " WHERE TRUE"
	args := []any{}

	if opts.Category != "" {
		args = append(args, opts.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}

	if opts.TriggerType != nil {
		args = append(args, string(*opts.TriggerType))
		where += fmt.Sprintf(" AND trigger_type = $%d", len(args))
	}

	if opts.IsActive != nil {
		args = append(args, *opts.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	var total int64

	err := tr.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_templates`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + templateColumns + ` FROM workflow_templates` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := tr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer closeRows(ctx, tr.logger, rows)

	templates := make([]*models.WorkflowTemplate, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return &persistence.TemplateListResult{
		Templates:  templates,
		Total:      total,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListPopular returns templates by usage count descending, ties broken by
// most recent update.
func (tr *TemplateRepository) ListPopular(ctx context.Context, limit int) ([]*models.WorkflowTemplate, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + templateColumns + `
		FROM workflow_templates
		ORDER BY usage_count DESC, updated_at DESC
		LIMIT $1`

	rows, err := tr.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular templates: %w", err)
	}

	defer closeRows(ctx, tr.logger, rows)

	templates := make([]*models.WorkflowTemplate, 0, limit)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// ListCategories returns the distinct template categories, sorted.
func (tr *TemplateRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := tr.db.QueryContext(ctx, `SELECT DISTINCT category FROM workflow_templates ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	defer closeRows(ctx, tr.logger, rows)

	categories := make([]string, 0)

	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}

		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// IncrementUsage bumps the usage counter in the database, so concurrent
// executions of the same template never lose increments.
func (tr *TemplateRepository) IncrementUsage(ctx context.Context, id string) error {
	result, err := tr.db.ExecContext(ctx,
		`UPDATE workflow_templates SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return persistence.NewTemplateError("IncrementUsage", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewTemplateError("IncrementUsage", id, err)
	}

	if affected == 0 {
		return persistence.NewTemplateError("IncrementUsage", id, persistence.ErrTemplateNotFound)
	}

	return nil
}
