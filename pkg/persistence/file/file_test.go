package file

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
)

func newTemplate(id string, createdAt time.Time) *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:          id,
		Name:        "Template " + id,
		Category:    "general",
		TriggerType: models.TriggerTypeManual,
		Actions: []*models.ActionItem{
			{ID: "a1", Type: "log", Name: "log", Configuration: map[string]any{"message": "hi"}},
		},
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func newExecution(id string, templateID string, status models.ExecutionStatus, createdAt time.Time) *models.WorkflowExecution {
	execution := &models.WorkflowExecution{
		ID:           id,
		WorkflowName: "Execution " + id,
		TriggerType:  models.TriggerTypeManual,
		Status:       status,
		Actions:      []*models.ActionItem{{ID: "a1", Type: "log", Name: "log"}},
		CreatedAt:    createdAt,
	}

	if templateID != "" {
		execution.TemplateID = &templateID
	}

	return execution
}

func TestTemplateRepository_SaveAndGet(t *testing.T) {
	p := NewPersistence(t.TempDir())

	template := newTemplate("t1", time.Now().UTC())
	require.NoError(t, p.Templates().Save(t.Context(), template))

	loaded, err := p.Templates().GetByID(t.Context(), "t1")
	require.NoError(t, err)
	assert.Equal(t, template.Name, loaded.Name)
	assert.Equal(t, template.Actions[0].Configuration["message"], loaded.Actions[0].Configuration["message"])
}

func TestTemplateRepository_GetByID_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.Templates().GetByID(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestTemplateRepository_Delete(t *testing.T) {
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.Templates().Save(t.Context(), newTemplate("t1", time.Now().UTC())))
	require.NoError(t, p.Templates().Delete(t.Context(), "t1"))

	_, err := p.Templates().GetByID(t.Context(), "t1")
	assert.True(t, persistence.IsTemplateNotFound(err))

	err = p.Templates().Delete(t.Context(), "t1")
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestTemplateRepository_ListFilters(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	active := newTemplate("active", now)
	active.Category = "reminders"

	inactive := newTemplate("inactive", now.Add(time.Second))
	inactive.IsActive = false

	scheduled := newTemplate("scheduled", now.Add(2*time.Second))
	scheduled.TriggerType = models.TriggerTypeSchedule

	for _, template := range []*models.WorkflowTemplate{active, inactive, scheduled} {
		require.NoError(t, p.Templates().Save(t.Context(), template))
	}

	isActive := true
	result, err := p.Templates().List(t.Context(), persistence.ListTemplatesOptions{IsActive: &isActive})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)

	triggerType := models.TriggerTypeSchedule
	result, err = p.Templates().List(t.Context(), persistence.ListTemplatesOptions{TriggerType: &triggerType})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Total)
	assert.Equal(t, "scheduled", result.Templates[0].ID)

	result, err = p.Templates().List(t.Context(), persistence.ListTemplatesOptions{Category: "reminders"})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Total)
	assert.Equal(t, "active", result.Templates[0].ID)
}

func TestTemplateRepository_Pagination(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	for i := range 5 {
		template := newTemplate(fmt.Sprintf("t%d", i), now.Add(time.Duration(i)*time.Second))
		require.NoError(t, p.Templates().Save(t.Context(), template))
	}

	result, err := p.Templates().List(t.Context(), persistence.ListTemplatesOptions{Page: 2, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 3, result.TotalPages)
	assert.Len(t, result.Templates, 2)

	// Out-of-range pages return an empty slice, not an error.
	result, err = p.Templates().List(t.Context(), persistence.ListTemplatesOptions{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Templates)
	assert.Equal(t, int64(5), result.Total)
}

func TestTemplateRepository_IncrementUsage_Concurrent(t *testing.T) {
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.Templates().Save(t.Context(), newTemplate("busy", time.Now().UTC())))

	const goroutines = 20

	var wg sync.WaitGroup

	for range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, p.Templates().IncrementUsage(t.Context(), "busy"))
		}()
	}

	wg.Wait()

	loaded, err := p.Templates().GetByID(t.Context(), "busy")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines), loaded.UsageCount)
}

func TestTemplateRepository_SavePreservesUsageCount(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	template := newTemplate("edited", now)
	require.NoError(t, p.Templates().Save(t.Context(), template))

	stale := *template

	require.NoError(t, p.Templates().IncrementUsage(t.Context(), template.ID))

	// An admin edit written from a snapshot taken before the increment.
	stale.Name = "Edited name"
	require.NoError(t, p.Templates().Save(t.Context(), &stale))

	loaded, err := p.Templates().GetByID(t.Context(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited name", loaded.Name)
	assert.Equal(t, int64(1), loaded.UsageCount)
}

func TestTemplateRepository_ListPopular(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	first := newTemplate("first", now)
	first.UsageCount = 5

	second := newTemplate("second", now)
	second.UsageCount = 9

	third := newTemplate("third", now)

	for _, template := range []*models.WorkflowTemplate{first, second, third} {
		require.NoError(t, p.Templates().Save(t.Context(), template))
	}

	popular, err := p.Templates().ListPopular(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "second", popular[0].ID)
	assert.Equal(t, "first", popular[1].ID)
}

func TestTemplateRepository_ListCategories(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	a := newTemplate("a", now)
	a.Category = "reminders"
	b := newTemplate("b", now)
	b.Category = "billing"
	c := newTemplate("c", now)
	c.Category = "reminders"

	for _, template := range []*models.WorkflowTemplate{a, b, c} {
		require.NoError(t, p.Templates().Save(t.Context(), template))
	}

	categories, err := p.Templates().ListCategories(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"reminders", "billing"}, categories)
}

func TestExecutionRepository_Transition(t *testing.T) {
	p := NewPersistence(t.TempDir())

	execution := newExecution("e1", "", models.ExecutionStatusQueued, time.Now().UTC())
	require.NoError(t, p.Executions().Save(t.Context(), execution))

	startedAt := time.Now().UTC()

	updated, err := p.Executions().Transition(t.Context(), "e1",
		[]models.ExecutionStatus{models.ExecutionStatusQueued},
		persistence.ExecutionUpdate{Status: models.ExecutionStatusRunning, StartedAt: &startedAt})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, updated.Status)
	require.NotNil(t, updated.StartedAt)

	// A second transition expecting queued must lose.
	_, err = p.Executions().Transition(t.Context(), "e1",
		[]models.ExecutionStatus{models.ExecutionStatusQueued},
		persistence.ExecutionUpdate{Status: models.ExecutionStatusRunning})
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionStatusConflict(err))

	// The record kept the winning state.
	loaded, err := p.Executions().GetByID(t.Context(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
}

func TestExecutionRepository_Transition_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.Executions().Transition(t.Context(), "missing",
		[]models.ExecutionStatus{models.ExecutionStatusQueued},
		persistence.ExecutionUpdate{Status: models.ExecutionStatusRunning})
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
	assert.False(t, persistence.IsExecutionStatusConflict(err))
}

func TestExecutionRepository_Transition_ConcurrentSingleWinner(t *testing.T) {
	p := NewPersistence(t.TempDir())

	execution := newExecution("contested", "", models.ExecutionStatusQueued, time.Now().UTC())
	require.NoError(t, p.Executions().Save(t.Context(), execution))

	const contenders = 10

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for range contenders {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := p.Executions().Transition(t.Context(), "contested",
				[]models.ExecutionStatus{models.ExecutionStatusQueued},
				persistence.ExecutionUpdate{Status: models.ExecutionStatusRunning})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else {
				assert.True(t, persistence.IsExecutionStatusConflict(err))
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestExecutionRepository_ListAndRecent(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	for i := range 4 {
		status := models.ExecutionStatusQueued
		if i%2 == 0 {
			status = models.ExecutionStatusCompleted
		}

		execution := newExecution(fmt.Sprintf("e%d", i), "tpl-1", status, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, p.Executions().Save(t.Context(), execution))
	}

	status := models.ExecutionStatusCompleted
	result, err := p.Executions().List(t.Context(), persistence.ListExecutionsOptions{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)

	result, err = p.Executions().List(t.Context(), persistence.ListExecutionsOptions{TemplateID: "tpl-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Total)

	recent, err := p.Executions().ListRecent(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "e3", recent[0].ID)
	assert.Equal(t, "e2", recent[1].ID)
}

func TestDocumentWorkflowRepository_StatsBuckets(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	statuses := map[string]models.DocumentWorkflowStatus{
		"w1": models.DocumentWorkflowStatusInProgress,
		"w2": models.DocumentWorkflowStatusCompleted,
		"w3": models.DocumentWorkflowStatusCancelled,
		"w4": models.DocumentWorkflowStatusFailed,
	}

	for id, status := range statuses {
		workflow := &models.DocumentWorkflow{
			ID:           id,
			DocumentID:   "doc-1",
			WorkflowName: "Chain " + id,
			CurrentStep:  1,
			TotalSteps:   2,
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, p.DocumentWorkflows().Save(t.Context(), workflow))
	}

	stats, err := p.DocumentWorkflows().Stats(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.InProgress)
	assert.Equal(t, int64(1), stats.Completed)
	// Cancelled and failed share one bucket.
	assert.Equal(t, int64(2), stats.Cancelled)
}

func TestDocumentWorkflowRepository_ListByDocumentID(t *testing.T) {
	p := NewPersistence(t.TempDir())
	now := time.Now().UTC()

	for i, documentID := range []string{"doc-1", "doc-1", "doc-2"} {
		workflow := &models.DocumentWorkflow{
			ID:           fmt.Sprintf("w%d", i),
			DocumentID:   documentID,
			WorkflowName: "Approval",
			CurrentStep:  1,
			TotalSteps:   2,
			Status:       models.DocumentWorkflowStatusInProgress,
			CreatedAt:    now.Add(time.Duration(i) * time.Second),
			UpdatedAt:    now,
		}
		require.NoError(t, p.DocumentWorkflows().Save(t.Context(), workflow))
	}

	workflows, err := p.DocumentWorkflows().ListByDocumentID(t.Context(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	workflows, err = p.DocumentWorkflows().ListByDocumentID(t.Context(), "doc-3")
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestPersistence_HealthCheck(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence(dir)

	require.NoError(t, p.HealthCheck(t.Context()))

	missing := NewPersistence(dir + "/does-not-exist")
	assert.Error(t, missing.HealthCheck(t.Context()))
}
