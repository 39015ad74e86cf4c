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

// DocumentWorkflowRepository stores approval chains as JSON files under
// <root>/document_workflows.
type DocumentWorkflowRepository struct {
	root string
	mu   sync.Mutex
}

// NewDocumentWorkflowRepository creates a new document workflow repository.
func NewDocumentWorkflowRepository(root string) *DocumentWorkflowRepository {
	return &DocumentWorkflowRepository{root: root}
}

func (dr *DocumentWorkflowRepository) dir() string {
	return filepath.Join(dr.root, "document_workflows")
}

func (dr *DocumentWorkflowRepository) path(id string) string {
	return filepath.Join(dr.dir(), id+".json")
}

func (dr *DocumentWorkflowRepository) readAll() ([]*models.DocumentWorkflow, error) {
	entries, err := os.ReadDir(dr.dir())
	if os.IsNotExist(err) {
		return []*models.DocumentWorkflow{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list document workflow files: %w", err)
	}

	workflows := make([]*models.DocumentWorkflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dr.dir(), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read document workflow file %s: %w", entry.Name(), err)
		}

		var workflow models.DocumentWorkflow
		if err := json.Unmarshal(data, &workflow); err != nil {
			return nil, fmt.Errorf("failed to parse document workflow file %s: %w", entry.Name(), err)
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}

// Save writes the document workflow to disk, replacing any existing version.
func (dr *DocumentWorkflowRepository) Save(_ context.Context, workflow *models.DocumentWorkflow) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if err := os.MkdirAll(dr.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create document workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize document workflow %s: %w", workflow.ID, err)
	}

	if err := os.WriteFile(dr.path(workflow.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write document workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// GetByID loads a document workflow by its identifier.
func (dr *DocumentWorkflowRepository) GetByID(_ context.Context, id string) (*models.DocumentWorkflow, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	data, err := os.ReadFile(dr.path(id))
	if os.IsNotExist(err) {
		return nil, persistence.ErrDocumentWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read document workflow %s: %w", id, err)
	}

	var workflow models.DocumentWorkflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse document workflow %s: %w", id, err)
	}

	return &workflow, nil
}

// List returns one page of document workflows, newest created first.
func (dr *DocumentWorkflowRepository) List(_ context.Context, opts persistence.ListDocumentWorkflowsOptions) (*persistence.DocumentWorkflowListResult, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	workflows, err := dr.readAll()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.DocumentWorkflow, 0, len(workflows))

	for _, workflow := range workflows {
		if opts.Status != nil && workflow.Status != *opts.Status {
			continue
		}

		if opts.DocumentID != "" && workflow.DocumentID != opts.DocumentID {
			continue
		}

		filtered = append(filtered, workflow)
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

	return &persistence.DocumentWorkflowListResult{
		Workflows:  filtered[start:end],
		Total:      total,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListByDocumentID returns every approval chain attached to one document,
// newest first, for audit display.
func (dr *DocumentWorkflowRepository) ListByDocumentID(_ context.Context, documentID string) ([]*models.DocumentWorkflow, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	workflows, err := dr.readAll()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.DocumentWorkflow, 0)

	for _, workflow := range workflows {
		if workflow.DocumentID == documentID {
			matched = append(matched, workflow)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched, nil
}

// Stats counts document workflows by status. Cancelled and failed land in
// the same bucket.
func (dr *DocumentWorkflowRepository) Stats(_ context.Context) (*models.DocumentWorkflowStats, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	workflows, err := dr.readAll()
	if err != nil {
		return nil, err
	}

	stats := &models.DocumentWorkflowStats{}

	for _, workflow := range workflows {
		stats.Total++

		switch workflow.Status {
		case models.DocumentWorkflowStatusInProgress:
			stats.InProgress++
		case models.DocumentWorkflowStatusCompleted:
			stats.Completed++
		case models.DocumentWorkflowStatusCancelled, models.DocumentWorkflowStatusFailed:
			stats.Cancelled++
		}
	}

	return stats, nil
}
