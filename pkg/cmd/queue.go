package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dvmsuite/clinicflow/pkg/queue"
)

// NewQueue picks the dispatch queue backend from the queue URL. redis://
// selects Redis; "memory" (or empty) selects the in-process channel queue,
// which only works when the API and worker share one process.
func NewQueue(ctx context.Context, logger *slog.Logger, queueURL string) (queue.Queue, error) {
	if strings.HasPrefix(queueURL, "redis://") || strings.HasPrefix(queueURL, "rediss://") {
		return queue.NewRedisQueue(ctx, logger, queueURL)
	}

	return queue.NewGoChannelQueue(logger), nil
}
