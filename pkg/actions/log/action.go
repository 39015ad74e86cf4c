// Package log provides a log action executor, mostly useful for smoke-testing
// templates before wiring real side effects.
package log

import (
	"context"
	"log/slog"

	"github.com/dvmsuite/clinicflow/pkg/models"
)

// Action writes a message to the worker's log at a configurable level.
type Action struct {
	Message string
	Level   string
}

// NewAction creates a new Action from configuration.
func NewAction(config map[string]any) *Action {
	message, _ := config["message"].(string)
	level, _ := config["level"].(string)

	if level == "" {
		level = "info"
	}

	return &Action{
		Message: message,
		Level:   level,
	}
}

// Execute logs the configured message together with the run context.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "log", "execution_id", executionCtx.ExecutionID)

	switch a.Level {
	case "debug":
		logger.DebugContext(ctx, a.Message)
	case "warn", "warning":
		logger.WarnContext(ctx, a.Message)
	case "error":
		logger.ErrorContext(ctx, a.Message)
	default:
		logger.InfoContext(ctx, a.Message)
	}

	return map[string]any{
		"message": a.Message,
		"level":   a.Level,
	}, nil
}
