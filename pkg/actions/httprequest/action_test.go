package httprequest

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvmsuite/clinicflow/pkg/models"
)

func TestNewAction_Validation(t *testing.T) {
	_, err := NewAction(map[string]any{})
	require.ErrorIs(t, err, ErrMissingURL)

	action, err := NewAction(map[string]any{"url": "http://example.com", "method": "post"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, action.Method)
	assert.Equal(t, 1, action.Retry.Attempts)
}

func TestNewAction_RetryConfig(t *testing.T) {
	action, err := NewAction(map[string]any{
		"url": "http://example.com",
		"retry": map[string]any{
			"attempts": float64(3),
			"delay":    float64(0),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, action.Retry.Attempts)
}

func TestNewAction_RetryAttemptsClampedToOne(t *testing.T) {
	for _, attempts := range []float64{0, -2} {
		action, err := NewAction(map[string]any{
			"url": "http://example.com",
			"retry": map[string]any{
				"attempts": attempts,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, action.Retry.Attempts)
	}
}

func TestAction_Execute_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url": server.URL,
		"headers": map[string]any{
			"Content-Type": "application/json",
		},
	})
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resultMap["status_code"])
	assert.Contains(t, resultMap, "json")
}

func TestAction_Execute_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url": server.URL,
		"retry": map[string]any{
			"attempts": float64(2),
			"delay":    float64(0),
		},
	})
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), models.ExecutionContext{}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempt(s)")
	assert.Equal(t, int32(2), calls.Load())
}

func TestActionFactory_SchemaRequiresURL(t *testing.T) {
	factory := NewActionFactory()

	assert.Equal(t, "http_request", factory.ID())

	schema := factory.Schema()
	require.NotEmpty(t, schema)
	assert.Contains(t, schema["required"], "url")
}
