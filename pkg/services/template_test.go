package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
	"github.com/dvmsuite/clinicflow/pkg/persistence/file"
)

func newTemplateService(t *testing.T) *Template {
	t.Helper()

	return NewTemplate(file.NewPersistence(t.TempDir()))
}

func validCreateRequest() CreateTemplateRequest {
	return CreateTemplateRequest{
		Name:        "Post-surgery follow-up",
		Description: "Reminds the owner three days after surgery",
		TriggerType: models.TriggerTypeEvent,
		TriggerConfig: map[string]any{
			"event": "surgery.completed",
		},
		Actions: []*models.ActionItem{
			{Type: "log", Name: "Log reminder", Configuration: map[string]any{"message": "follow-up"}},
		},
	}
}

func TestTemplate_Create(t *testing.T) {
	service := newTemplateService(t)

	created, err := service.Create(t.Context(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, int64(0), created.UsageCount)
	assert.Equal(t, models.DefaultCategory, created.Category)
	assert.NotEmpty(t, created.Actions[0].ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestTemplate_Create_Invalid(t *testing.T) {
	service := newTemplateService(t)

	tests := []struct {
		name   string
		mutate func(*CreateTemplateRequest)
		errIs  error
	}{
		{
			name:   "no actions",
			mutate: func(r *CreateTemplateRequest) { r.Actions = nil },
			errIs:  ErrEmptyActions,
		},
		{
			name:   "unknown trigger type",
			mutate: func(r *CreateTemplateRequest) { r.TriggerType = "webhook" },
			errIs:  ErrInvalidTriggerType,
		},
		{
			name:   "name too short",
			mutate: func(r *CreateTemplateRequest) { r.Name = "ab" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := service.Create(t.Context(), req)
			require.Error(t, err)

			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

func TestTemplate_Update(t *testing.T) {
	service := newTemplateService(t)

	created, err := service.Create(t.Context(), validCreateRequest())
	require.NoError(t, err)

	newName := "Post-surgery follow-up v2"
	inactive := false

	updated, err := service.Update(t.Context(), created.ID, UpdateTemplateRequest{
		Name:     &newName,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, newName, updated.Name)
	assert.False(t, updated.IsActive)
	// Untouched fields survive a partial update.
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.TriggerType, updated.TriggerType)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestTemplate_Update_Empty(t *testing.T) {
	service := newTemplateService(t)

	created, err := service.Create(t.Context(), validCreateRequest())
	require.NoError(t, err)

	_, err = service.Update(t.Context(), created.ID, UpdateTemplateRequest{})
	require.ErrorIs(t, err, ErrEmptyUpdate)
}

func TestTemplate_Update_NotFound(t *testing.T) {
	service := newTemplateService(t)

	name := "Does not matter"
	_, err := service.Update(t.Context(), "missing", UpdateTemplateRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestTemplate_Delete_KeepsExecutionsOutOfScope(t *testing.T) {
	service := newTemplateService(t)

	created, err := service.Create(t.Context(), validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.GetByID(t.Context(), created.ID)
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestTemplate_ListByCategoryAndCategories(t *testing.T) {
	service := newTemplateService(t)

	first := validCreateRequest()
	first.Category = "reminders"
	_, err := service.Create(t.Context(), first)
	require.NoError(t, err)

	second := validCreateRequest()
	second.Name = "Estimate approval chain"
	second.Category = "billing"
	_, err = service.Create(t.Context(), second)
	require.NoError(t, err)

	billing, err := service.ListByCategory(t.Context(), "billing")
	require.NoError(t, err)
	require.Len(t, billing, 1)
	assert.Equal(t, "Estimate approval chain", billing[0].Name)

	categories, err := service.ListCategories(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"reminders", "billing"}, categories)
}

func TestTemplate_ListPopular(t *testing.T) {
	service := newTemplateService(t)

	quiet, err := service.Create(t.Context(), validCreateRequest())
	require.NoError(t, err)

	busyReq := validCreateRequest()
	busyReq.Name = "Daily kennel report"
	busy, err := service.Create(t.Context(), busyReq)
	require.NoError(t, err)

	p := service.persistence
	for range 3 {
		require.NoError(t, p.Templates().IncrementUsage(t.Context(), busy.ID))
	}

	popular, err := service.ListPopular(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, busy.ID, popular[0].ID)
	assert.Equal(t, quiet.ID, popular[1].ID)
}
