// Package file provides file-based persistence for templates, executions and
// document workflows. Intended for development and tests; the repositories
// serialize access with a mutex so counter increments and status transitions
// behave atomically within one process.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dvmsuite/clinicflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file system.
type Persistence struct {
	root          string
	templateRepo  *TemplateRepository
	executionRepo *ExecutionRepository
	documentRepo  *DocumentWorkflowRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		templateRepo:  NewTemplateRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
		documentRepo:  NewDocumentWorkflowRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Templates() persistence.TemplateRepository {
	return fp.templateRepo
}

func (fp *Persistence) Executions() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) DocumentWorkflows() persistence.DocumentWorkflowRepository {
	return fp.documentRepo
}

// clampPage normalizes pagination inputs: 1-indexed page, limit defaulted to
// 20 and capped at 100.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}

	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	return page, limit
}

// totalPages is ceil(total/limit).
func totalPages(total int64, limit int) int {
	if total == 0 {
		return 0
	}

	return int((total + int64(limit) - 1) / int64(limit))
}
