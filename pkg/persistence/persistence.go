// Package persistence provides the data storage abstraction for templates,
// executions and document workflows.
package persistence

import (
	"context"
	"time"

	"github.com/dvmsuite/clinicflow/pkg/models"
)

// Persistence is the root storage handle. The engine holds no entity state
// between calls; every operation goes back to a repository.
type Persistence interface {
	Templates() TemplateRepository
	Executions() ExecutionRepository
	DocumentWorkflows() DocumentWorkflowRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListTemplatesOptions filters and paginates template listings.
type ListTemplatesOptions struct {
	Category    string
	TriggerType *models.TriggerType
	IsActive    *bool

	// 1-indexed page, limit clamped by the repository.
	Page  int
	Limit int
}

// TemplateListResult carries one page of templates with totals.
type TemplateListResult struct {
	Templates  []*models.WorkflowTemplate
	Total      int64
	TotalPages int
}

type TemplateRepository interface {
	Save(ctx context.Context, template *models.WorkflowTemplate) error
	GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListTemplatesOptions) (*TemplateListResult, error)

	// ListPopular orders by usage count descending, ties broken by most
	// recent update.
	ListPopular(ctx context.Context, limit int) ([]*models.WorkflowTemplate, error)
	ListCategories(ctx context.Context) ([]string, error)

	// IncrementUsage must be an atomic counter operation. Concurrent
	// executions of the same template may not lose increments.
	IncrementUsage(ctx context.Context, id string) error
}

// ListExecutionsOptions filters and paginates execution listings.
type ListExecutionsOptions struct {
	Status     *models.ExecutionStatus
	TemplateID string

	Page  int
	Limit int
}

// ExecutionListResult carries one page of executions, newest first.
type ExecutionListResult struct {
	Executions []*models.WorkflowExecution
	Total      int64
	TotalPages int
}

// ExecutionUpdate describes the fields applied by a status transition.
type ExecutionUpdate struct {
	Status      models.ExecutionStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	List(ctx context.Context, opts ListExecutionsOptions) (*ExecutionListResult, error)
	ListRecent(ctx context.Context, limit int) ([]*models.WorkflowExecution, error)
	Stats(ctx context.Context, templateID string) (*models.ExecutionStats, error)

	// Transition applies update only when the execution's current status is
	// one of expected, returning the updated record. A mismatch returns
	// ErrExecutionStatusConflict so lifecycle races (cancel vs dispatch)
	// resolve to exactly one winner.
	Transition(ctx context.Context, id string, expected []models.ExecutionStatus, update ExecutionUpdate) (*models.WorkflowExecution, error)
}

// ListDocumentWorkflowsOptions filters and paginates approval chains.
type ListDocumentWorkflowsOptions struct {
	Status     *models.DocumentWorkflowStatus
	DocumentID string

	Page  int
	Limit int
}

// DocumentWorkflowListResult carries one page of document workflows.
type DocumentWorkflowListResult struct {
	Workflows  []*models.DocumentWorkflow
	Total      int64
	TotalPages int
}

type DocumentWorkflowRepository interface {
	Save(ctx context.Context, workflow *models.DocumentWorkflow) error
	GetByID(ctx context.Context, id string) (*models.DocumentWorkflow, error)
	List(ctx context.Context, opts ListDocumentWorkflowsOptions) (*DocumentWorkflowListResult, error)
	ListByDocumentID(ctx context.Context, documentID string) ([]*models.DocumentWorkflow, error)
	Stats(ctx context.Context) (*models.DocumentWorkflowStats, error)
}
