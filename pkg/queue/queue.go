// Package queue is the job-runner boundary between the execution engine and
// its workers. The engine enqueues execution ids fire-and-forget; a worker
// consumes them and calls back into the engine's dispatch.
package queue

import "context"

// DispatchTopic carries execution ids awaiting dispatch.
const DispatchTopic = "clinicflow.executions.dispatch"

// Handler processes one dequeued execution id.
type Handler func(ctx context.Context, executionID string) error

type Queue interface {
	// Enqueue hands an execution id to the job runner. It returns once the
	// id is durably queued; the caller never blocks on dispatch.
	Enqueue(ctx context.Context, executionID string) error

	// Consume blocks, invoking handler for each queued execution id until
	// the context is cancelled.
	Consume(ctx context.Context, handler Handler) error

	Close() error
}
