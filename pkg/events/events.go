// Package events defines event types and structures for workflow lifecycle
// notifications.
package events

import (
	"time"

	"github.com/dvmsuite/clinicflow/pkg/models"
)

type EventType string

// Topic is the bus topic carrying all workflow lifecycle events.
const Topic = "clinicflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Trigger events: inbound requests asking the gateway to start an
	// execution for a template.
	TriggerFiredEvent EventType = "trigger.fired"

	// Execution lifecycle events.
	ExecutionQueuedEvent    EventType = "execution.queued"
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Document workflow (approval chain) events.
	DocumentWorkflowAdvancedEvent  EventType = "document_workflow.advanced"
	DocumentWorkflowCompletedEvent EventType = "document_workflow.completed"
	DocumentWorkflowCancelledEvent EventType = "document_workflow.cancelled"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TriggerFired asks the gateway to start an execution from a template. The
// external event bus (or the schedule activator) publishes these.
type TriggerFired struct {
	BaseEvent

	TemplateID  string             `json:"template_id"`
	TriggerType models.TriggerType `json:"trigger_type"`
	TriggerData map[string]any     `json:"trigger_data,omitempty"`
}

func (t TriggerFired) GetType() EventType {
	return TriggerFiredEvent
}

type ExecutionQueued struct {
	BaseEvent

	ExecutionID string  `json:"execution_id"`
	TemplateID  *string `json:"template_id,omitempty"`
}

func (e ExecutionQueued) GetType() EventType {
	return ExecutionQueuedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	WorkerID    string `json:"worker_id,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type DocumentWorkflowAdvanced struct {
	BaseEvent

	WorkflowID  string `json:"workflow_id"`
	DocumentID  string `json:"document_id"`
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
}

func (e DocumentWorkflowAdvanced) GetType() EventType {
	return DocumentWorkflowAdvancedEvent
}

type DocumentWorkflowCompleted struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	DocumentID string `json:"document_id"`
}

func (e DocumentWorkflowCompleted) GetType() EventType {
	return DocumentWorkflowCompletedEvent
}

type DocumentWorkflowCancelled struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	DocumentID string `json:"document_id"`
}

func (e DocumentWorkflowCancelled) GetType() EventType {
	return DocumentWorkflowCancelledEvent
}
