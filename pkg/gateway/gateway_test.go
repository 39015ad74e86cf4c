package gateway

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dvmsuite/clinicflow/pkg/events"
	"github.com/dvmsuite/clinicflow/pkg/mocks"
	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
	"github.com/dvmsuite/clinicflow/pkg/persistence/file"
	"github.com/dvmsuite/clinicflow/pkg/registry"
	"github.com/dvmsuite/clinicflow/pkg/services"
)

func newGateway(t *testing.T) (*Gateway, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	q := &mocks.MockQueue{}
	q.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

	engine := services.NewEngine(p, registry.NewRegistry(slog.Default()), q, nil, slog.Default())

	return NewGateway(engine, slog.Default()), p
}

func saveTemplate(t *testing.T, p persistence.Persistence, id string, active bool) {
	t.Helper()

	now := time.Now().UTC()
	template := &models.WorkflowTemplate{
		ID:          id,
		Name:        "Template " + id,
		Category:    "general",
		TriggerType: models.TriggerTypeEvent,
		Actions: []*models.ActionItem{
			{ID: "a1", Type: "log", Name: "log", Configuration: map[string]any{"message": "hi"}},
		},
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, p.Templates().Save(t.Context(), template))
}

func TestGateway_ExecuteTemplate(t *testing.T) {
	gw, p := newGateway(t)
	saveTemplate(t, p, "tpl-1", true)

	execution, err := gw.ExecuteTemplate(t.Context(), "tpl-1", map[string]any{"patient": "rex"})
	require.NoError(t, err)

	assert.Equal(t, models.TriggerTypeManual, execution.TriggerType)
	assert.Equal(t, models.ExecutionStatusQueued, execution.Status)
}

func TestGateway_FireScheduled(t *testing.T) {
	gw, p := newGateway(t)
	saveTemplate(t, p, "tpl-1", true)

	execution, err := gw.FireScheduled(t.Context(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, models.TriggerTypeSchedule, execution.TriggerType)
}

func TestGateway_HandleTriggerFired(t *testing.T) {
	gw, p := newGateway(t)
	saveTemplate(t, p, "tpl-1", true)

	err := gw.handleTriggerFired(t.Context(), &events.TriggerFired{
		TemplateID:  "tpl-1",
		TriggerData: map[string]any{"event": "surgery.completed"},
	})
	require.NoError(t, err)

	// The execution exists and carries the event trigger type.
	result, err := p.Executions().List(t.Context(), persistence.ListExecutionsOptions{TemplateID: "tpl-1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Total)
	assert.Equal(t, models.TriggerTypeEvent, result.Executions[0].TriggerType)
}

func TestGateway_HandleTriggerFired_DropsUnavailableTemplate(t *testing.T) {
	gw, p := newGateway(t)
	saveTemplate(t, p, "paused", false)

	// Inactive and missing templates are dropped without error so the bus
	// does not redeliver.
	err := gw.handleTriggerFired(t.Context(), &events.TriggerFired{TemplateID: "paused"})
	require.NoError(t, err)

	err = gw.handleTriggerFired(t.Context(), &events.TriggerFired{TemplateID: "missing"})
	require.NoError(t, err)

	result, err := p.Executions().List(t.Context(), persistence.ListExecutionsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)
}

func TestGateway_HandleTriggerFired_BadPayload(t *testing.T) {
	gw, _ := newGateway(t)

	err := gw.handleTriggerFired(t.Context(), "not an event")
	require.Error(t, err)
}
