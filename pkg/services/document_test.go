package services

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
	"github.com/dvmsuite/clinicflow/pkg/persistence/file"
)

func newDocumentTracker(t *testing.T) *DocumentTracker {
	t.Helper()

	return NewDocumentTracker(file.NewPersistence(t.TempDir()), nil, slog.Default())
}

func validDocumentRequest() CreateDocumentWorkflowRequest {
	return CreateDocumentWorkflowRequest{
		DocumentID:   "estimate-42",
		WorkflowName: "Estimate approval",
		TotalSteps:   3,
	}
}

func TestDocumentTracker_Create(t *testing.T) {
	tracker := newDocumentTracker(t)

	workflow, err := tracker.Create(t.Context(), validDocumentRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, 1, workflow.CurrentStep)
	assert.Equal(t, 3, workflow.TotalSteps)
	assert.Equal(t, models.DocumentWorkflowStatusInProgress, workflow.Status)
	assert.Nil(t, workflow.CompletedAt)
}

func TestDocumentTracker_Create_Invalid(t *testing.T) {
	tracker := newDocumentTracker(t)

	tests := []struct {
		name   string
		mutate func(*CreateDocumentWorkflowRequest)
		errIs  error
	}{
		{
			name:   "zero steps",
			mutate: func(r *CreateDocumentWorkflowRequest) { r.TotalSteps = 0 },
			errIs:  ErrInvalidTotalSteps,
		},
		{
			name:   "negative steps",
			mutate: func(r *CreateDocumentWorkflowRequest) { r.TotalSteps = -2 },
			errIs:  ErrInvalidTotalSteps,
		},
		{
			name: "steps metadata length mismatch",
			mutate: func(r *CreateDocumentWorkflowRequest) {
				r.Steps = []map[string]any{{"name": "vet review"}}
			},
			errIs: ErrStepCountMismatch,
		},
		{
			name:   "missing document id",
			mutate: func(r *CreateDocumentWorkflowRequest) { r.DocumentID = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validDocumentRequest()
			tt.mutate(&req)

			_, err := tracker.Create(t.Context(), req)
			require.Error(t, err)

			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

func TestDocumentTracker_AdvanceToCompletion(t *testing.T) {
	tracker := newDocumentTracker(t)

	workflow, err := tracker.Create(t.Context(), validDocumentRequest())
	require.NoError(t, err)

	advanced, err := tracker.Advance(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, advanced.CurrentStep)
	assert.Equal(t, models.DocumentWorkflowStatusInProgress, advanced.Status)

	// Reaching the last step completes the chain in the same call.
	final, err := tracker.Advance(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, final.CurrentStep)
	assert.Equal(t, models.DocumentWorkflowStatusCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)

	// A completed chain rejects further advancement.
	_, err = tracker.Advance(t.Context(), workflow.ID)
	require.ErrorIs(t, err, ErrWorkflowAlreadyCompleted)
	assert.True(t, IsConflictError(err))
}

func TestDocumentTracker_Advance_SingleStep(t *testing.T) {
	tracker := newDocumentTracker(t)

	req := validDocumentRequest()
	req.TotalSteps = 1

	workflow, err := tracker.Create(t.Context(), req)
	require.NoError(t, err)

	// A one-step chain starts at its last step and can only complete by
	// having already reached it.
	_, err = tracker.Advance(t.Context(), workflow.ID)
	require.ErrorIs(t, err, ErrWorkflowAlreadyCompleted)
}

func TestDocumentTracker_Advance_Cancelled(t *testing.T) {
	tracker := newDocumentTracker(t)

	workflow, err := tracker.Create(t.Context(), validDocumentRequest())
	require.NoError(t, err)

	_, err = tracker.Cancel(t.Context(), workflow.ID)
	require.NoError(t, err)

	_, err = tracker.Advance(t.Context(), workflow.ID)
	require.ErrorIs(t, err, ErrWorkflowCancelled)
}

func TestDocumentTracker_Cancel_Unconditional(t *testing.T) {
	tracker := newDocumentTracker(t)

	req := validDocumentRequest()
	req.TotalSteps = 2

	workflow, err := tracker.Create(t.Context(), req)
	require.NoError(t, err)

	_, err = tracker.Advance(t.Context(), workflow.ID)
	require.NoError(t, err)

	// Cancelling a completed chain is accepted.
	cancelled, err := tracker.Cancel(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentWorkflowStatusCancelled, cancelled.Status)

	// And cancelling again is a no-op, not an error.
	again, err := tracker.Cancel(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentWorkflowStatusCancelled, again.Status)
}

func TestDocumentTracker_GetByDocumentID(t *testing.T) {
	tracker := newDocumentTracker(t)

	first, err := tracker.Create(t.Context(), validDocumentRequest())
	require.NoError(t, err)

	second, err := tracker.Create(t.Context(), validDocumentRequest())
	require.NoError(t, err)

	other := validDocumentRequest()
	other.DocumentID = "contract-7"
	_, err = tracker.Create(t.Context(), other)
	require.NoError(t, err)

	workflows, err := tracker.GetByDocumentID(t.Context(), "estimate-42")
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	ids := []string{workflows[0].ID, workflows[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestDocumentTracker_Stats_CancelledBucket(t *testing.T) {
	tracker := newDocumentTracker(t)

	_, err := tracker.Create(t.Context(), validDocumentRequest())
	require.NoError(t, err)

	cancelled, err := tracker.Create(t.Context(), validDocumentRequest())
	require.NoError(t, err)
	_, err = tracker.Cancel(t.Context(), cancelled.ID)
	require.NoError(t, err)

	// Failed chains land in the cancelled bucket alongside cancellations.
	failed, err := tracker.Create(t.Context(), validDocumentRequest())
	require.NoError(t, err)

	stored, err := tracker.GetByID(t.Context(), failed.ID)
	require.NoError(t, err)
	stored.Status = models.DocumentWorkflowStatusFailed
	require.NoError(t, tracker.persistence.DocumentWorkflows().Save(t.Context(), stored))

	stats, err := tracker.GetStats(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.InProgress)
	assert.Equal(t, int64(0), stats.Completed)
	assert.Equal(t, int64(2), stats.Cancelled)
}

func TestDocumentTracker_List_InvalidStatus(t *testing.T) {
	tracker := newDocumentTracker(t)

	bad := models.DocumentWorkflowStatus("archived")
	_, err := tracker.List(t.Context(), persistence.ListDocumentWorkflowsOptions{Status: &bad})
	require.ErrorIs(t, err, ErrInvalidStatus)
}
