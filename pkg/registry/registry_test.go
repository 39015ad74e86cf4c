package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/protocol"
)

type noopAction struct{}

func (noopAction) Execute(context.Context, models.ExecutionContext, *slog.Logger) (any, error) {
	return nil, nil
}

type strictFactory struct{}

func (strictFactory) ID() string          { return "strict" }
func (strictFactory) Name() string        { return "Strict" }
func (strictFactory) Description() string { return "schema-validated test action" }

func (strictFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target": map[string]any{"type": "string"},
		},
		"required": []string{"target"},
	}
}

func (strictFactory) Create(context.Context, map[string]any) (protocol.Action, error) {
	return noopAction{}, nil
}

func TestRegistry_CreateAction(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(strictFactory{})

	action, err := reg.CreateAction(t.Context(), "strict", map[string]any{"target": "invoices"})
	require.NoError(t, err)
	assert.NotNil(t, action)
}

func TestRegistry_CreateAction_Unregistered(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, err := reg.CreateAction(t.Context(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_CreateAction_SchemaViolation(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(strictFactory{})

	_, err := reg.CreateAction(t.Context(), "strict", map[string]any{"target": 42})
	require.Error(t, err)

	_, err = reg.CreateAction(t.Context(), "strict", map[string]any{})
	require.Error(t, err)
}

func TestRegistry_HasActionAndAvailable(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(strictFactory{})

	assert.True(t, reg.HasAction("strict"))
	assert.False(t, reg.HasAction("other"))
	assert.Equal(t, []string{"strict"}, reg.AvailableActions())
}

func TestRegistry_HealthCheck(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, ok := reg.HealthCheck()
	assert.False(t, ok)

	reg.RegisterAction(strictFactory{})

	msg, ok := reg.HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, msg, "1 action")
}
