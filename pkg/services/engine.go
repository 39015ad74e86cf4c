package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvmsuite/clinicflow/pkg/eventbus"
	"github.com/dvmsuite/clinicflow/pkg/events"
	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/otelhelper"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
	"github.com/dvmsuite/clinicflow/pkg/queue"
	"github.com/dvmsuite/clinicflow/pkg/registry"
)

// Engine drives workflow executions through their lifecycle. Start calls
// return as soon as the execution is queued; the job queue hands the id to a
// worker which calls Dispatch. Terminal states are immutable: every
// transition goes through the repository's guarded Transition, so races
// between dispatch and cancel resolve to exactly one winner.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	queue       queue.Queue
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewEngine creates a new execution engine.
func NewEngine(
	p persistence.Persistence,
	reg *registry.Registry,
	q queue.Queue,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		persistence: p,
		registry:    reg,
		queue:       q,
		eventBus:    bus,
		logger:      logger.With("module", "execution_engine"),
		tracer:      otel.Tracer("clinicflow/engine"),
	}
}

// StartFromTemplate creates a queued execution from a template, copying the
// template's current action list so later edits cannot change what this run
// will do, then hands the execution to the job queue. The caller gets the
// queued record back immediately and never blocks on action execution.
func (e *Engine) StartFromTemplate(ctx context.Context, templateID string, triggerType models.TriggerType, triggerData map[string]any) (*models.WorkflowExecution, error) {
	template, err := e.persistence.Templates().GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if !template.IsActive {
		return nil, fmt.Errorf("template %s: %w", templateID, ErrTemplateInactive)
	}

	execution := &models.WorkflowExecution{
		ID:           uuid.NewString(),
		TemplateID:   &template.ID,
		WorkflowName: template.Name,
		TriggerType:  triggerType,
		TriggerData:  triggerData,
		Status:       models.ExecutionStatusQueued,
		Actions:      models.CloneActions(template.Actions),
		CreatedAt:    time.Now().UTC(),
	}

	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	if err := e.persistence.Templates().IncrementUsage(ctx, template.ID); err != nil {
		return nil, fmt.Errorf("failed to increment template usage: %w", err)
	}

	if err := e.enqueue(ctx, execution); err != nil {
		return nil, err
	}

	return execution, nil
}

// StartCustom creates a queued execution from an ad-hoc action list with no
// template behind it.
func (e *Engine) StartCustom(ctx context.Context, workflowName string, actions []*models.ActionItem, triggerType models.TriggerType, triggerData map[string]any) (*models.WorkflowExecution, error) {
	if len(actions) == 0 {
		return nil, ErrEmptyActions
	}

	if workflowName == "" {
		return nil, ErrWorkflowNameRequired
	}

	for _, action := range actions {
		if action.ID == "" {
			action.ID = uuid.NewString()
		}
	}

	execution := &models.WorkflowExecution{
		ID:           uuid.NewString(),
		WorkflowName: workflowName,
		TriggerType:  triggerType,
		TriggerData:  triggerData,
		Status:       models.ExecutionStatusQueued,
		Actions:      models.CloneActions(actions),
		CreatedAt:    time.Now().UTC(),
	}

	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	if err := e.enqueue(ctx, execution); err != nil {
		return nil, err
	}

	return execution, nil
}

func (e *Engine) enqueue(ctx context.Context, execution *models.WorkflowExecution) error {
	if err := e.queue.Enqueue(ctx, execution.ID); err != nil {
		return fmt.Errorf("failed to enqueue execution %s: %w", execution.ID, err)
	}

	e.publish(ctx, execution.ID, events.ExecutionQueued{
		BaseEvent:   e.baseEvent(events.ExecutionQueuedEvent),
		ExecutionID: execution.ID,
		TemplateID:  execution.TemplateID,
	})

	e.logger.InfoContext(ctx, "Execution queued",
		"execution_id", execution.ID,
		"workflow_name", execution.WorkflowName,
		"trigger_type", execution.TriggerType,
	)

	return nil
}

// Dispatch runs one queued execution to a terminal state. It is called by
// the worker, not by API callers. Actions run strictly in list order; the
// first failure stops the run and earlier side effects stay as they are.
// Cancellation is cooperative: the loop rechecks the stored status between
// actions and stops before starting the next one.
func (e *Engine) Dispatch(ctx context.Context, executionID string) error {
	ctx, span := e.tracer.Start(ctx, "engine.dispatch", trace.WithAttributes(
		attribute.String(otelhelper.ExecutionIDKey, executionID),
	))
	defer span.End()

	startedAt := time.Now().UTC()

	execution, err := e.persistence.Executions().Transition(ctx, executionID,
		[]models.ExecutionStatus{models.ExecutionStatusQueued},
		persistence.ExecutionUpdate{
			Status:    models.ExecutionStatusRunning,
			StartedAt: &startedAt,
		})
	if persistence.IsExecutionStatusConflict(err) {
		// Cancelled before dispatch, or another worker got here first.
		// Either way this callback has nothing left to do.
		e.logger.InfoContext(ctx, "Skipping dispatch, execution no longer queued", "execution_id", executionID)

		return nil
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	e.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   e.baseEvent(events.ExecutionStartedEvent),
		ExecutionID: execution.ID,
	})

	logger := e.logger.With("execution_id", execution.ID, "workflow_name", execution.WorkflowName)
	logger.InfoContext(ctx, "Dispatching execution", "actions", len(execution.Actions))

	executionCtx := models.ExecutionContext{
		ExecutionID:   execution.ID,
		WorkflowName:  execution.WorkflowName,
		TriggerType:   execution.TriggerType,
		TriggerData:   execution.TriggerData,
		ActionResults: make(map[string]any),
	}

	if execution.TemplateID != nil {
		executionCtx.TemplateID = *execution.TemplateID
	}

	for i, action := range execution.Actions {
		if i > 0 && e.cancelledMeanwhile(ctx, execution.ID) {
			logger.InfoContext(ctx, "Execution cancelled, stopping before next action", "action_index", i)

			return nil
		}

		result, err := e.executeAction(ctx, action, executionCtx, logger)
		if err != nil {
			return e.fail(ctx, execution.ID, i, action, err, startedAt)
		}

		executionCtx.ActionResults[action.ID] = result
	}

	completedAt := time.Now().UTC()

	_, err = e.persistence.Executions().Transition(ctx, execution.ID,
		[]models.ExecutionStatus{models.ExecutionStatusRunning},
		persistence.ExecutionUpdate{
			Status:      models.ExecutionStatusCompleted,
			CompletedAt: &completedAt,
		})
	if persistence.IsExecutionStatusConflict(err) {
		// Cancelled after the last action finished. The cancel won.
		return nil
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:   e.baseEvent(events.ExecutionCompletedEvent),
		ExecutionID: execution.ID,
		Duration:    completedAt.Sub(startedAt),
	})

	logger.InfoContext(ctx, "Execution completed", "duration", completedAt.Sub(startedAt))

	return nil
}

// cancelledMeanwhile reloads the execution and reports whether it left the
// running state (a cooperative cancel landed between actions).
func (e *Engine) cancelledMeanwhile(ctx context.Context, executionID string) bool {
	current, err := e.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to reload execution between actions", "execution_id", executionID, "error", err)

		return false
	}

	return current.Status != models.ExecutionStatusRunning
}

func (e *Engine) executeAction(ctx context.Context, action *models.ActionItem, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	ctx, span := e.tracer.Start(ctx, "engine.action", trace.WithAttributes(
		attribute.String(otelhelper.ActionIDKey, action.ID),
		attribute.String(otelhelper.ActionTypeKey, action.Type),
	))
	defer span.End()

	logger = logger.With("action_id", action.ID, "action_type", action.Type)
	logger.InfoContext(ctx, "Executing action")

	executor, err := e.registry.CreateAction(ctx, action.Type, action.Configuration)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	result, err := executor.Execute(ctx, executionCtx, logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	logger.InfoContext(ctx, "Action completed")

	return result, nil
}

// fail marks the execution failed with enough detail to identify which
// action broke. The error is recorded on the execution, never re-raised to
// the trigger caller: dispatch is asynchronous and failure discovery is
// pull-based.
func (e *Engine) fail(ctx context.Context, executionID string, index int, action *models.ActionItem, actionErr error, startedAt time.Time) error {
	completedAt := time.Now().UTC()
	message := fmt.Sprintf("action %d (%s, type %s) failed: %v", index+1, action.Name, action.Type, actionErr)

	_, err := e.persistence.Executions().Transition(ctx, executionID,
		[]models.ExecutionStatus{models.ExecutionStatusRunning},
		persistence.ExecutionUpdate{
			Status:      models.ExecutionStatusFailed,
			Error:       message,
			CompletedAt: &completedAt,
		})
	if persistence.IsExecutionStatusConflict(err) {
		return nil
	}

	if err != nil {
		return err
	}

	e.publish(ctx, executionID, events.ExecutionFailed{
		BaseEvent:   e.baseEvent(events.ExecutionFailedEvent),
		ExecutionID: executionID,
		Error:       message,
		Duration:    completedAt.Sub(startedAt),
	})

	e.logger.ErrorContext(ctx, "Execution failed", "execution_id", executionID, "error", message)

	return nil
}

// Cancel transitions a non-terminal execution to cancelled. A running
// execution keeps its current action going; the dispatch loop notices the
// new status before starting the next one.
func (e *Engine) Cancel(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	completedAt := time.Now().UTC()

	execution, err := e.persistence.Executions().Transition(ctx, executionID,
		[]models.ExecutionStatus{models.ExecutionStatusQueued, models.ExecutionStatusRunning},
		persistence.ExecutionUpdate{
			Status:      models.ExecutionStatusCancelled,
			CompletedAt: &completedAt,
		})
	if persistence.IsExecutionStatusConflict(err) {
		return nil, fmt.Errorf("execution %s: %w", executionID, ErrExecutionTerminal)
	}

	if err != nil {
		return nil, err
	}

	e.publish(ctx, execution.ID, events.ExecutionCancelled{
		BaseEvent:   e.baseEvent(events.ExecutionCancelledEvent),
		ExecutionID: execution.ID,
	})

	e.logger.InfoContext(ctx, "Execution cancelled", "execution_id", execution.ID)

	return execution, nil
}

// GetByID loads one execution.
func (e *Engine) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.persistence.Executions().GetByID(ctx, id)
}

// List returns one page of executions, newest first.
func (e *Engine) List(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	if opts.Status != nil && !models.ValidExecutionStatus(*opts.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *opts.Status)
	}

	return e.persistence.Executions().List(ctx, opts)
}

// GetRecent returns the most recently started executions.
func (e *Engine) GetRecent(ctx context.Context, limit int) ([]*models.WorkflowExecution, error) {
	if limit <= 0 {
		limit = 10
	}

	return e.persistence.Executions().ListRecent(ctx, limit)
}

// GetStats counts executions by status, optionally scoped to one template.
func (e *Engine) GetStats(ctx context.Context, templateID string) (*models.ExecutionStats, error) {
	return e.persistence.Executions().Stats(ctx, templateID)
}

func (e *Engine) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// publish is best-effort: lifecycle events feed dashboards and the bus being
// down must not fail the lifecycle transition itself.
func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
