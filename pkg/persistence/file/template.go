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

// TemplateRepository stores workflow templates as JSON files under
// <root>/templates.
type TemplateRepository struct {
	root string
	mu   sync.Mutex
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{root: root}
}

func (tr *TemplateRepository) dir() string {
	return filepath.Join(tr.root, "templates")
}

func (tr *TemplateRepository) path(id string) string {
	return filepath.Join(tr.dir(), id+".json")
}

func (tr *TemplateRepository) readAll() ([]*models.WorkflowTemplate, error) {
	entries, err := os.ReadDir(tr.dir())
	if os.IsNotExist(err) {
		return []*models.WorkflowTemplate{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}

	templates := make([]*models.WorkflowTemplate, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(tr.dir(), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var template models.WorkflowTemplate
		if err := json.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}

		templates = append(templates, &template)
	}

	return templates, nil
}

func (tr *TemplateRepository) read(id string) (*models.WorkflowTemplate, error) {
	data, err := os.ReadFile(tr.path(id))
	if os.IsNotExist(err) {
		return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", id, err)
	}

	var template models.WorkflowTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", id, err)
	}

	return &template, nil
}

func (tr *TemplateRepository) write(template *models.WorkflowTemplate) error {
	if err := os.MkdirAll(tr.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create templates directory: %w", err)
	}

	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize template %s: %w", template.ID, err)
	}

	if err := os.WriteFile(tr.path(template.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write template %s: %w", template.ID, err)
	}

	return nil
}

// Save writes the template to disk, replacing any existing version. The
// usage counter is owned by IncrementUsage, so a save over an existing
// template keeps the stored counter instead of rewinding it from the
// caller's snapshot.
func (tr *TemplateRepository) Save(_ context.Context, template *models.WorkflowTemplate) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if existing, err := tr.read(template.ID); err == nil && existing.UsageCount != template.UsageCount {
		copied := *template
		copied.UsageCount = existing.UsageCount

		return tr.write(&copied)
	}

	return tr.write(template)
}

// GetByID loads a template by its identifier.
func (tr *TemplateRepository) GetByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	return tr.read(id)
}

// Delete removes a template. Past executions keep their copied action lists.
func (tr *TemplateRepository) Delete(_ context.Context, id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	err := os.Remove(tr.path(id))
	if os.IsNotExist(err) {
		return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}

	return nil
}

// List returns one page of templates, newest created first.
func (tr *TemplateRepository) List(_ context.Context, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	templates, err := tr.readAll()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowTemplate, 0, len(templates))

	for _, template := range templates {
		if opts.Category != "" && template.Category != opts.Category {
			continue
		}

		if opts.TriggerType != nil && template.TriggerType != *opts.TriggerType {
			continue
		}

		if opts.IsActive != nil && template.IsActive != *opts.IsActive {
			continue
		}

		filtered = append(filtered, template)
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

	return &persistence.TemplateListResult{
		Templates:  filtered[start:end],
		Total:      total,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListPopular returns up to limit templates by usage count descending, ties
// broken by most recent update.
func (tr *TemplateRepository) ListPopular(_ context.Context, limit int) ([]*models.WorkflowTemplate, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	templates, err := tr.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(templates, func(i, j int) bool {
		if templates[i].UsageCount != templates[j].UsageCount {
			return templates[i].UsageCount > templates[j].UsageCount
		}

		return templates[i].UpdatedAt.After(templates[j].UpdatedAt)
	})

	if limit > 0 && limit < len(templates) {
		templates = templates[:limit]
	}

	return templates, nil
}

// ListCategories returns the distinct categories across all templates, sorted.
func (tr *TemplateRepository) ListCategories(_ context.Context) ([]string, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	templates, err := tr.readAll()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(templates))
	categories := make([]string, 0, len(templates))

	for _, template := range templates {
		if _, ok := seen[template.Category]; ok {
			continue
		}

		seen[template.Category] = struct{}{}
		categories = append(categories, template.Category)
	}

	sort.Strings(categories)

	return categories, nil
}

// IncrementUsage bumps the usage counter under the repository mutex so
// concurrent increments never lose updates.
func (tr *TemplateRepository) IncrementUsage(_ context.Context, id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	template, err := tr.read(id)
	if err != nil {
		return err
	}

	template.UsageCount++

	return tr.write(template)
}
