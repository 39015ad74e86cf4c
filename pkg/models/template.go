// Package models defines the core domain models for trigger-driven workflow automation.
package models

import "time"

// TriggerType discriminates how a workflow template is fired.
type TriggerType string

const (
	TriggerTypeEvent    TriggerType = "event"    // Fired by an external event on the bus
	TriggerTypeSchedule TriggerType = "schedule" // Fired by the cron activator
	TriggerTypeManual   TriggerType = "manual"   // Fired by an operator through the API
)

// ValidTriggerType reports whether t is one of the supported trigger types.
func ValidTriggerType(t TriggerType) bool {
	switch t {
	case TriggerTypeEvent, TriggerTypeSchedule, TriggerTypeManual:
		return true
	default:
		return false
	}
}

// TriggerConfig carries the trigger payload for a template. The engine does
// not interpret the configuration beyond handing it to the activator; its
// shape depends on the template's trigger type (event name for event
// triggers, cron expression for schedule triggers).
type TriggerConfig struct {
	Type          TriggerType    `json:"type"          validate:"required"`
	Configuration map[string]any `json:"configuration"`
}

// CronExpression returns the cron spec for schedule triggers, empty otherwise.
func (c TriggerConfig) CronExpression() string {
	expr, _ := c.Configuration["cron"].(string)

	return expr
}

// EventName returns the subscribed event name for event triggers, empty otherwise.
func (c TriggerConfig) EventName() string {
	name, _ := c.Configuration["event"].(string)

	return name
}

// WorkflowTemplate is a reusable automation definition: a trigger condition
// plus an ordered list of actions. Templates never execute themselves;
// executions are started from them and copy their action list.
type WorkflowTemplate struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"           validate:"required,min=3,max=255"`
	Description   string        `json:"description"    validate:"max=1000"`
	Category      string        `json:"category"`
	TriggerType   TriggerType   `json:"trigger_type"   validate:"required"`
	TriggerConfig TriggerConfig `json:"trigger_config"`
	Actions       []*ActionItem `json:"actions"        validate:"required,min=1"`
	IsActive      bool          `json:"is_active"`
	IsPublic      bool          `json:"is_public"`
	UsageCount    int64         `json:"usage_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// DefaultCategory is assigned when a template is created without one.
const DefaultCategory = "general"
