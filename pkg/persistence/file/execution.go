package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
)

// ExecutionRepository stores workflow executions as JSON files under
// <root>/executions.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return filepath.Join(er.root, "executions")
}

func (er *ExecutionRepository) path(id string) string {
	return filepath.Join(er.dir(), id+".json")
}

func (er *ExecutionRepository) readAll() ([]*models.WorkflowExecution, error) {
	entries, err := os.ReadDir(er.dir())
	if os.IsNotExist(err) {
		return []*models.WorkflowExecution{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(er.dir(), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution file %s: %w", entry.Name(), err)
		}

		var execution models.WorkflowExecution
		if err := json.Unmarshal(data, &execution); err != nil {
			return nil, fmt.Errorf("failed to parse execution file %s: %w", entry.Name(), err)
		}

		executions = append(executions, &execution)
	}

	return executions, nil
}

func (er *ExecutionRepository) read(id string) (*models.WorkflowExecution, error) {
	data, err := os.ReadFile(er.path(id))
	if os.IsNotExist(err) {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("failed to parse execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) write(execution *models.WorkflowExecution) error {
	if err := os.MkdirAll(er.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize execution %s: %w", execution.ID, err)
	}

	if err := os.WriteFile(er.path(execution.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}

// Save writes the execution to disk, replacing any existing version.
func (er *ExecutionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	return er.write(execution)
}

// GetByID loads an execution by its identifier.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	return er.read(id)
}

// List returns one page of executions, newest created first.
func (er *ExecutionRepository) List(_ context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	executions, err := er.readAll()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowExecution, 0, len(executions))

	for _, execution := range executions {
		if opts.Status != nil && execution.Status != *opts.Status {
			continue
		}

		if opts.TemplateID != "" {
			if execution.TemplateID == nil || *execution.TemplateID != opts.TemplateID {
				continue
			}
		}

		filtered = append(filtered, execution)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	page, limit := clampPage(opts.Page, opts.Limit)
	total := int64(len(filtered))

	start := (page - 1) * limit
	if start > len(filtered) {
		start = len(filtered)
	}

	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return &persistence.ExecutionListResult{
		Executions: filtered[start:end],
		Total:      total,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListRecent returns up to limit executions, most recently created first.
func (er *ExecutionRepository) ListRecent(_ context.Context, limit int) ([]*models.WorkflowExecution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	executions, err := er.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})

	if limit > 0 && limit < len(executions) {
		executions = executions[:limit]
	}

	return executions, nil
}

// Stats counts executions by status, optionally scoped to one template.
func (er *ExecutionRepository) Stats(_ context.Context, templateID string) (*models.ExecutionStats, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	executions, err := er.readAll()
	if err != nil {
		return nil, err
	}

	stats := &models.ExecutionStats{}

	for _, execution := range executions {
		if templateID != "" {
			if execution.TemplateID == nil || *execution.TemplateID != templateID {
				continue
			}
		}

		stats.Total++

		switch execution.Status {
		case models.ExecutionStatusQueued:
			stats.Queued++
		case models.ExecutionStatusRunning:
			stats.Running++
		case models.ExecutionStatusCompleted:
			stats.Completed++
		case models.ExecutionStatusFailed:
			stats.Failed++
		case models.ExecutionStatusCancelled:
			stats.Cancelled++
		}
	}

	return stats, nil
}

// Transition applies the update only when the current status is one of
// expected. The read-check-write sequence runs under the repository mutex, so
// concurrent transitions on the same execution resolve to one winner.
func (er *ExecutionRepository) Transition(_ context.Context, id string, expected []models.ExecutionStatus, update persistence.ExecutionUpdate) (*models.WorkflowExecution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.read(id)
	if err != nil {
		return nil, err
	}

	allowed := false

	for _, status := range expected {
		if execution.Status == status {
			allowed = true

			break
		}
	}

	if !allowed {
		return nil, persistence.NewExecutionError("Transition", id, persistence.ErrExecutionStatusConflict)
	}

	execution.Status = update.Status

	if update.Error != "" {
		execution.Error = update.Error
	}

	if update.StartedAt != nil {
		execution.StartedAt = update.StartedAt
	}

	if update.CompletedAt != nil {
		execution.CompletedAt = update.CompletedAt
	}

	if err := er.write(execution); err != nil {
		return nil, err
	}

	return execution, nil
}
