package models

import "time"

// DocumentWorkflowStatus represents the lifecycle state of an approval chain.
type DocumentWorkflowStatus string

const (
	DocumentWorkflowStatusInProgress DocumentWorkflowStatus = "in_progress"
	DocumentWorkflowStatusCompleted  DocumentWorkflowStatus = "completed"
	DocumentWorkflowStatusCancelled  DocumentWorkflowStatus = "cancelled"
	DocumentWorkflowStatusFailed     DocumentWorkflowStatus = "failed"
)

// ValidDocumentWorkflowStatus reports whether s is a known status.
func ValidDocumentWorkflowStatus(s DocumentWorkflowStatus) bool {
	switch s {
	case DocumentWorkflowStatusInProgress, DocumentWorkflowStatusCompleted,
		DocumentWorkflowStatusCancelled, DocumentWorkflowStatusFailed:
		return true
	default:
		return false
	}
}

// DocumentWorkflow is a fixed-length, step-indexed approval chain attached to
// an external document (contract sign-off, estimate approval). It is
// independent of the template/execution engine: steps advance one at a time
// and the chain completes exactly when the last step is reached.
type DocumentWorkflow struct {
	ID           string                 `json:"id"`
	DocumentID   string                 `json:"document_id"   validate:"required"`
	WorkflowName string                 `json:"workflow_name" validate:"required,min=3,max=255"`
	CurrentStep  int                    `json:"current_step"`
	TotalSteps   int                    `json:"total_steps"   validate:"required,min=1"`
	Steps        []map[string]any       `json:"steps,omitempty"`
	Status       DocumentWorkflowStatus `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// DocumentWorkflowStats aggregates approval chains by status. Cancelled and
// failed chains are reported in a single bucket; downstream dashboards have
// always shown them together.
type DocumentWorkflowStats struct {
	Total      int64 `json:"total"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}
