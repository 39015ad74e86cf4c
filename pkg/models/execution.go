package models

import "time"

// ExecutionStatus represents the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusQueued    ExecutionStatus = "queued"    // Created, waiting for a worker
	ExecutionStatusRunning   ExecutionStatus = "running"   // Worker is iterating the action list
	ExecutionStatusCompleted ExecutionStatus = "completed" // All actions succeeded
	ExecutionStatusFailed    ExecutionStatus = "failed"    // An action failed, later actions skipped
	ExecutionStatusCancelled ExecutionStatus = "cancelled" // Cancelled before or between actions
)

// Terminal reports whether no further transitions may leave the status.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// ValidExecutionStatus reports whether s is a known execution status.
func ValidExecutionStatus(s ExecutionStatus) bool {
	switch s {
	case ExecutionStatusQueued, ExecutionStatusRunning, ExecutionStatusCompleted,
		ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// WorkflowExecution is one concrete run of a template or an ad-hoc action
// list. TemplateID is nil for ad-hoc runs. Actions are resolved at start
// time and immutable afterwards.
type WorkflowExecution struct {
	ID           string          `json:"id"`
	TemplateID   *string         `json:"template_id,omitempty"`
	WorkflowName string          `json:"workflow_name"`
	TriggerType  TriggerType     `json:"trigger_type"`
	TriggerData  map[string]any  `json:"trigger_data,omitempty"`
	Status       ExecutionStatus `json:"status"`
	Actions      []*ActionItem   `json:"actions"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// ExecutionStats aggregates execution counts by status.
type ExecutionStats struct {
	Total     int64 `json:"total"`
	Queued    int64 `json:"queued"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}
