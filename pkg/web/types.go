// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/dvmsuite/clinicflow/pkg/models"

// ActionItemRequest is one action inside a template or ad-hoc execution
// payload. IDs are assigned server-side when omitted.
type ActionItemRequest struct {
	ID            string         `json:"id,omitempty"`
	Type          string         `json:"type"          validate:"required"`
	Name          string         `json:"name"          validate:"required,min=1"`
	Configuration map[string]any `json:"configuration"`
}

func toActionItems(reqs []ActionItemRequest) []*models.ActionItem {
	actions := make([]*models.ActionItem, 0, len(reqs))

	for _, req := range reqs {
		actions = append(actions, &models.ActionItem{
			ID:            req.ID,
			Type:          req.Type,
			Name:          req.Name,
			Configuration: req.Configuration,
		})
	}

	return actions
}

// CreateTemplateRequest represents the request body for creating a template.
type CreateTemplateRequest struct {
	Name          string              `json:"name"           validate:"required,min=3,max=255"`
	Description   string              `json:"description"    validate:"max=1000"`
	Category      string              `json:"category"`
	TriggerType   models.TriggerType  `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any      `json:"trigger_config"`
	Actions       []ActionItemRequest `json:"actions"        validate:"required,min=1,dive"`
	IsPublic      bool                `json:"is_public"`
}

// UpdateTemplateRequest represents a partial template update. The trigger
// type cannot be changed after creation.
type UpdateTemplateRequest struct {
	Name          *string             `json:"name,omitempty"           validate:"omitempty,min=3,max=255"`
	Description   *string             `json:"description,omitempty"    validate:"omitempty,max=1000"`
	Category      *string             `json:"category,omitempty"`
	TriggerConfig map[string]any      `json:"trigger_config,omitempty"`
	Actions       []ActionItemRequest `json:"actions,omitempty"        validate:"omitempty,min=1,dive"`
	IsActive      *bool               `json:"is_active,omitempty"`
	IsPublic      *bool               `json:"is_public,omitempty"`
}

// ExecuteTemplateRequest represents the request body for firing a template
// manually. TriggerData is handed unmodified to the actions.
type ExecuteTemplateRequest struct {
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

// ExecuteCustomRequest represents the request body for running an ad-hoc
// action list without a template.
type ExecuteCustomRequest struct {
	WorkflowName string              `json:"workflow_name" validate:"required,min=3,max=255"`
	Actions      []ActionItemRequest `json:"actions"       validate:"required,min=1,dive"`
	TriggerData  map[string]any      `json:"trigger_data,omitempty"`
}

// CreateDocumentWorkflowRequest represents the request body for attaching an
// approval chain to a document.
type CreateDocumentWorkflowRequest struct {
	DocumentID   string           `json:"document_id"     validate:"required"`
	WorkflowName string           `json:"workflow_name"   validate:"required,min=3,max=255"`
	TotalSteps   int              `json:"total_steps"     validate:"required,min=1"`
	Steps        []map[string]any `json:"steps,omitempty"`
}

// PaginationResponse carries paging metadata alongside list payloads.
type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}
