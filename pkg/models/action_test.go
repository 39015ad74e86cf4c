package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneActions(t *testing.T) {
	original := []*ActionItem{
		{ID: "a1", Type: "log", Name: "first", Configuration: map[string]any{"message": "hello"}},
		{ID: "a2", Type: "http_request", Name: "second"},
	}

	cloned := CloneActions(original)
	require.Len(t, cloned, 2)

	// Mutating the original list must not leak into the clone.
	original[0].Configuration["message"] = "changed"
	original[1].Name = "renamed"

	assert.Equal(t, "hello", cloned[0].Configuration["message"])
	assert.Equal(t, "second", cloned[1].Name)
	assert.Nil(t, cloned[1].Configuration)
}

func TestCloneActions_Nil(t *testing.T) {
	assert.Nil(t, CloneActions(nil))
}

func TestExecutionStatus_Terminal(t *testing.T) {
	terminal := []ExecutionStatus{ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled}
	for _, status := range terminal {
		assert.True(t, status.Terminal(), string(status))
	}

	for _, status := range []ExecutionStatus{ExecutionStatusQueued, ExecutionStatusRunning} {
		assert.False(t, status.Terminal(), string(status))
	}
}

func TestTriggerConfig_Accessors(t *testing.T) {
	schedule := TriggerConfig{
		Type:          TriggerTypeSchedule,
		Configuration: map[string]any{"cron": "0 8 * * *"},
	}
	assert.Equal(t, "0 8 * * *", schedule.CronExpression())
	assert.Empty(t, schedule.EventName())

	event := TriggerConfig{
		Type:          TriggerTypeEvent,
		Configuration: map[string]any{"event": "surgery.completed"},
	}
	assert.Equal(t, "surgery.completed", event.EventName())
	assert.Empty(t, event.CronExpression())
}
