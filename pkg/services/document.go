package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dvmsuite/clinicflow/pkg/eventbus"
	"github.com/dvmsuite/clinicflow/pkg/events"
	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
)

// DocumentTracker manages approval chains attached to external documents.
// Chains are much simpler than executions: a single counter advances one
// step per call and completion happens exactly at the last step.
type DocumentTracker struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewDocumentTracker creates a new document workflow tracker.
func NewDocumentTracker(p persistence.Persistence, bus eventbus.EventPublisher, logger *slog.Logger) *DocumentTracker {
	return &DocumentTracker{
		persistence: p,
		eventBus:    bus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "document_tracker"),
	}
}

// CreateDocumentWorkflowRequest holds the fields accepted when attaching an
// approval chain to a document. Steps metadata is optional, but when given
// its length must match TotalSteps.
type CreateDocumentWorkflowRequest struct {
	DocumentID   string `validate:"required"`
	WorkflowName string `validate:"required,min=3,max=255"`
	TotalSteps   int
	Steps        []map[string]any
}

// Create attaches a new approval chain to a document, starting at step 1.
func (d *DocumentTracker) Create(ctx context.Context, req CreateDocumentWorkflowRequest) (*models.DocumentWorkflow, error) {
	if req.TotalSteps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTotalSteps, req.TotalSteps)
	}

	if len(req.Steps) > 0 && len(req.Steps) != req.TotalSteps {
		return nil, fmt.Errorf("%w: %d steps given, %d expected", ErrStepCountMismatch, len(req.Steps), req.TotalSteps)
	}

	if err := d.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid document workflow: %w", err)
	}

	now := time.Now().UTC()

	workflow := &models.DocumentWorkflow{
		ID:           uuid.NewString(),
		DocumentID:   req.DocumentID,
		WorkflowName: req.WorkflowName,
		CurrentStep:  1,
		TotalSteps:   req.TotalSteps,
		Steps:        req.Steps,
		Status:       models.DocumentWorkflowStatusInProgress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := d.persistence.DocumentWorkflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save document workflow: %w", err)
	}

	d.logger.InfoContext(ctx, "Document workflow created",
		"workflow_id", workflow.ID,
		"document_id", workflow.DocumentID,
		"total_steps", workflow.TotalSteps,
	)

	return workflow, nil
}

// Advance moves the chain forward one step. Reaching the last step completes
// the chain in the same call. Cancelled chains reject advancement, as do
// chains already at their last step.
func (d *DocumentTracker) Advance(ctx context.Context, id string) (*models.DocumentWorkflow, error) {
	workflow, err := d.persistence.DocumentWorkflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.DocumentWorkflowStatusCancelled {
		return nil, fmt.Errorf("document workflow %s: %w", id, ErrWorkflowCancelled)
	}

	if workflow.CurrentStep >= workflow.TotalSteps {
		return nil, fmt.Errorf("document workflow %s: %w", id, ErrWorkflowAlreadyCompleted)
	}

	workflow.CurrentStep++
	workflow.UpdatedAt = time.Now().UTC()

	if workflow.CurrentStep >= workflow.TotalSteps {
		workflow.Status = models.DocumentWorkflowStatusCompleted
		completedAt := workflow.UpdatedAt
		workflow.CompletedAt = &completedAt
	}

	if err := d.persistence.DocumentWorkflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save document workflow: %w", err)
	}

	d.publish(ctx, workflow.ID, events.DocumentWorkflowAdvanced{
		BaseEvent:   d.baseEvent(events.DocumentWorkflowAdvancedEvent),
		WorkflowID:  workflow.ID,
		DocumentID:  workflow.DocumentID,
		CurrentStep: workflow.CurrentStep,
		TotalSteps:  workflow.TotalSteps,
	})

	if workflow.Status == models.DocumentWorkflowStatusCompleted {
		d.publish(ctx, workflow.ID, events.DocumentWorkflowCompleted{
			BaseEvent:  d.baseEvent(events.DocumentWorkflowCompletedEvent),
			WorkflowID: workflow.ID,
			DocumentID: workflow.DocumentID,
		})
	}

	d.logger.InfoContext(ctx, "Document workflow advanced",
		"workflow_id", workflow.ID,
		"current_step", workflow.CurrentStep,
		"total_steps", workflow.TotalSteps,
		"status", workflow.Status,
	)

	return workflow, nil
}

// Cancel marks the chain cancelled regardless of its current status.
// Cancelling a completed or already cancelled chain is accepted and simply
// re-stamps the status; callers cancelling from a stale view must not get an
// error for a chain that finished under them.
func (d *DocumentTracker) Cancel(ctx context.Context, id string) (*models.DocumentWorkflow, error) {
	workflow, err := d.persistence.DocumentWorkflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.Status = models.DocumentWorkflowStatusCancelled
	workflow.UpdatedAt = time.Now().UTC()

	if err := d.persistence.DocumentWorkflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save document workflow: %w", err)
	}

	d.publish(ctx, workflow.ID, events.DocumentWorkflowCancelled{
		BaseEvent:  d.baseEvent(events.DocumentWorkflowCancelledEvent),
		WorkflowID: workflow.ID,
		DocumentID: workflow.DocumentID,
	})

	d.logger.InfoContext(ctx, "Document workflow cancelled", "workflow_id", workflow.ID)

	return workflow, nil
}

// GetByID loads one approval chain.
func (d *DocumentTracker) GetByID(ctx context.Context, id string) (*models.DocumentWorkflow, error) {
	return d.persistence.DocumentWorkflows().GetByID(ctx, id)
}

// List returns one page of approval chains.
func (d *DocumentTracker) List(ctx context.Context, opts persistence.ListDocumentWorkflowsOptions) (*persistence.DocumentWorkflowListResult, error) {
	if opts.Status != nil && !models.ValidDocumentWorkflowStatus(*opts.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *opts.Status)
	}

	return d.persistence.DocumentWorkflows().List(ctx, opts)
}

// GetByDocumentID returns every approval chain attached to one document.
func (d *DocumentTracker) GetByDocumentID(ctx context.Context, documentID string) ([]*models.DocumentWorkflow, error) {
	return d.persistence.DocumentWorkflows().ListByDocumentID(ctx, documentID)
}

// GetStats counts approval chains by status.
func (d *DocumentTracker) GetStats(ctx context.Context) (*models.DocumentWorkflowStats, error) {
	return d.persistence.DocumentWorkflows().Stats(ctx)
}

func (d *DocumentTracker) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

func (d *DocumentTracker) publish(ctx context.Context, key string, event eventbus.Event) {
	if d.eventBus == nil {
		return
	}

	if err := d.eventBus.Publish(ctx, key, event); err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
