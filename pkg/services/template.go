package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
)

// Template owns the workflow template catalog.
type Template struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewTemplate creates a new template service.
func NewTemplate(p persistence.Persistence) *Template {
	return &Template{
		persistence: p,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (t *Template) HealthCheck(ctx context.Context) (string, bool) {
	if t.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := t.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateTemplateRequest holds the fields accepted at template creation.
// The trigger type is fixed for the life of the template: changing what fires
// an automation is a different automation.
type CreateTemplateRequest struct {
	Name          string               `validate:"required,min=3,max=255"`
	Description   string               `validate:"max=1000"`
	Category      string
	TriggerType   models.TriggerType   `validate:"required"`
	TriggerConfig map[string]any
	Actions       []*models.ActionItem `validate:"required,min=1,dive,required"`
	IsPublic      bool
}

// Create validates and stores a new template, active by default.
func (t *Template) Create(ctx context.Context, req CreateTemplateRequest) (*models.WorkflowTemplate, error) {
	if len(req.Actions) == 0 {
		return nil, ErrEmptyActions
	}

	if !models.ValidTriggerType(req.TriggerType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTriggerType, req.TriggerType)
	}

	if err := t.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	category := req.Category
	if category == "" {
		category = models.DefaultCategory
	}

	for _, action := range req.Actions {
		if action.ID == "" {
			action.ID = uuid.NewString()
		}
	}

	now := time.Now().UTC()

	template := &models.WorkflowTemplate{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Category:    category,
		TriggerType: req.TriggerType,
		TriggerConfig: models.TriggerConfig{
			Type:          req.TriggerType,
			Configuration: req.TriggerConfig,
		},
		Actions:    req.Actions,
		IsActive:   true,
		IsPublic:   req.IsPublic,
		UsageCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := t.persistence.Templates().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	return template, nil
}

// GetByID loads one template.
func (t *Template) GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	return t.persistence.Templates().GetByID(ctx, id)
}

// UpdateTemplateRequest supports partial updates. Nil fields are untouched.
// TriggerType is deliberately absent: it is immutable after creation.
type UpdateTemplateRequest struct {
	Name          *string `validate:"omitempty,min=3,max=255"`
	Description   *string `validate:"omitempty,max=1000"`
	Category      *string
	TriggerConfig map[string]any
	Actions       []*models.ActionItem `validate:"omitempty,min=1"`
	IsActive      *bool
	IsPublic      *bool
}

func (r UpdateTemplateRequest) empty() bool {
	return r.Name == nil &&
		r.Description == nil &&
		r.Category == nil &&
		r.TriggerConfig == nil &&
		r.Actions == nil &&
		r.IsActive == nil &&
		r.IsPublic == nil
}

// Update applies a partial update, rejecting empty payloads.
func (t *Template) Update(ctx context.Context, id string, req UpdateTemplateRequest) (*models.WorkflowTemplate, error) {
	if req.empty() {
		return nil, ErrEmptyUpdate
	}

	if err := t.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid template update: %w", err)
	}

	template, err := t.persistence.Templates().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		template.Name = *req.Name
	}

	if req.Description != nil {
		template.Description = *req.Description
	}

	if req.Category != nil {
		template.Category = *req.Category
	}

	if req.TriggerConfig != nil {
		template.TriggerConfig.Configuration = req.TriggerConfig
	}

	if req.Actions != nil {
		for _, action := range req.Actions {
			if action.ID == "" {
				action.ID = uuid.NewString()
			}
		}

		template.Actions = req.Actions
	}

	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}

	if req.IsPublic != nil {
		template.IsPublic = *req.IsPublic
	}

	template.UpdatedAt = time.Now().UTC()

	if err := t.persistence.Templates().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	return template, nil
}

// Delete removes a template. Historical executions keep their copied action
// lists and stay queryable.
func (t *Template) Delete(ctx context.Context, id string) error {
	return t.persistence.Templates().Delete(ctx, id)
}

// List returns one page of templates.
func (t *Template) List(ctx context.Context, opts persistence.ListTemplatesOptions) (*persistence.TemplateListResult, error) {
	if opts.TriggerType != nil && !models.ValidTriggerType(*opts.TriggerType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTriggerType, *opts.TriggerType)
	}

	return t.persistence.Templates().List(ctx, opts)
}

// ListPopular returns up to limit templates ordered by usage.
func (t *Template) ListPopular(ctx context.Context, limit int) ([]*models.WorkflowTemplate, error) {
	if limit <= 0 {
		limit = 10
	}

	return t.persistence.Templates().ListPopular(ctx, limit)
}

// ListByCategory returns all templates in one category.
func (t *Template) ListByCategory(ctx context.Context, category string) ([]*models.WorkflowTemplate, error) {
	result, err := t.persistence.Templates().List(ctx, persistence.ListTemplatesOptions{
		Category: category,
		Limit:    100,
	})
	if err != nil {
		return nil, err
	}

	return result.Templates, nil
}

// ListCategories returns the distinct categories across all templates.
func (t *Template) ListCategories(ctx context.Context) ([]string, error) {
	return t.persistence.Templates().ListCategories(ctx)
}
