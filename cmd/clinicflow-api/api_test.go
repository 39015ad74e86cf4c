package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dvmsuite/clinicflow/pkg/cmd"
	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence/file"
	"github.com/dvmsuite/clinicflow/pkg/queue"
)

// With the in-process queue, executions accepted by the API must still be
// dispatched, even ones enqueued before the embedded consumer attaches.
func TestAPI_InProcessQueueDispatchesAcceptedExecutions(t *testing.T) {
	logger := slog.Default()
	p := file.NewPersistence(t.TempDir())
	q := queue.NewGoChannelQueue(logger)

	api := NewAPI(logger, p, cmd.NewRegistry(logger), q, nil)
	app := api.App()

	now := time.Now().UTC()
	template := &models.WorkflowTemplate{
		ID:          "tpl-embedded",
		Name:        "Discharge summary",
		Category:    "documents",
		TriggerType: models.TriggerTypeManual,
		Actions: []*models.ActionItem{
			{ID: "a1", Type: "log", Name: "notify", Configuration: map[string]any{"message": "done"}},
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, p.Templates().Save(t.Context(), template))

	req := httptest.NewRequest(http.MethodPost, "/templates/tpl-embedded/execute", bytes.NewBufferString(`{"triggerData":{"patient":"rex"}}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var execution models.WorkflowExecution
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&execution))
	require.NoError(t, resp.Body.Close())
	require.Equal(t, models.ExecutionStatusQueued, execution.Status)

	// The same loop Start runs alongside the server.
	consumeCtx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go func() {
		_ = q.Consume(consumeCtx, api.engine.Dispatch)
	}()

	require.Eventually(t, func() bool {
		got, err := api.engine.GetByID(t.Context(), execution.ID)

		return err == nil && got.Status == models.ExecutionStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)
}
