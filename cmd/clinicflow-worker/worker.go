// Package main provides the ClinicFlow dispatch worker implementation.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvmsuite/clinicflow/pkg/queue"
	"github.com/dvmsuite/clinicflow/pkg/services"
)

// Worker consumes execution ids from the dispatch queue and runs them
// through the engine. Several workers may share the same queue.
type Worker struct {
	id     string
	engine *services.Engine
	queue  queue.Queue
	logger *slog.Logger
}

func NewWorker(id string, engine *services.Engine, q queue.Queue, logger *slog.Logger) *Worker {
	return &Worker{
		id:     id,
		engine: engine,
		queue:  q,
		logger: logger.With("module", "worker", "worker_id", id),
	}
}

// Start consumes until SIGINT/SIGTERM. The execution in flight finishes its
// current action before the consume loop exits.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		w.logger.Info("Shutting down worker")
		cancel()
	}()

	w.logger.InfoContext(ctx, "Worker started")

	err := w.queue.Consume(ctx, w.dispatch)
	if err != nil && ctx.Err() != nil {
		return nil
	}

	return err
}

func (w *Worker) dispatch(ctx context.Context, executionID string) error {
	w.logger.InfoContext(ctx, "Received execution", "execution_id", executionID)

	if err := w.engine.Dispatch(ctx, executionID); err != nil {
		w.logger.ErrorContext(ctx, "Dispatch failed", "execution_id", executionID, "error", err)

		return err
	}

	return nil
}
