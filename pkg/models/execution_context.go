package models

// ExecutionContext carries the run-time state handed to action executors.
// ActionResults accumulates the output of earlier actions in the same run,
// keyed by action ID.
type ExecutionContext struct {
	ExecutionID   string         `json:"execution_id"`
	TemplateID    string         `json:"template_id,omitempty"`
	WorkflowName  string         `json:"workflow_name"`
	TriggerType   TriggerType    `json:"trigger_type"`
	TriggerData   map[string]any `json:"trigger_data,omitempty"`
	ActionResults map[string]any `json:"action_results,omitempty"`
}
