// Package protocol defines the contracts between the execution engine and
// pluggable action executors.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dvmsuite/clinicflow/pkg/models"
)

// Action performs one unit of work within an execution. The engine invokes
// actions strictly in list order and stops at the first failure; earlier side
// effects are not rolled back, so implementations should be idempotent and
// independently safe.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory creates action instances and describes the action type.
type ActionFactory interface {
	// Create creates a new action instance with the given configuration.
	Create(ctx context.Context, config map[string]any) (Action, error)

	// ID returns the unique identifier for this action type.
	ID() string

	// Name returns the human-readable name for this action type.
	Name() string

	// Description returns a description of what this action does.
	Description() string

	// Schema returns the JSON schema for configuring this action.
	Schema() map[string]any
}
