// Package main provides the ClinicFlow trigger activator: it fires schedule
// templates on their cron expressions and turns bus trigger events into
// executions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dvmsuite/clinicflow/pkg/cmd"
	"github.com/dvmsuite/clinicflow/pkg/gateway"
	"github.com/dvmsuite/clinicflow/pkg/log"
	"github.com/dvmsuite/clinicflow/pkg/scheduler"
	"github.com/dvmsuite/clinicflow/pkg/services"
)

func main() {
	logger := log.WithModule("activator")

	command := &cli.Command{
		Name:                  "clinicflow-activator",
		Usage:                 "Fire schedule and event triggers",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "queue-url",
				Usage:    "Dispatch queue URL (redis://)",
				Required: true,
				Sources:  cli.EnvVars("QUEUE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "sync-interval",
				Usage:   "How often to reconcile schedule templates",
				Value:   scheduler.DefaultSyncInterval,
				Sources: cli.EnvVars("SYNC_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing ClinicFlow Activator")

			registry := cmd.NewRegistry(logger)

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			dispatchQueue, err := cmd.NewQueue(ctx, logger, command.String("queue-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := dispatchQueue.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close queue", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "clinicflow-activator", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			engine := services.NewEngine(persistence, registry, dispatchQueue, eventBus, logger)
			gw := gateway.NewGateway(engine, logger)

			if err := gw.Wire(eventBus); err != nil {
				return err
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				<-sigChan
				logger.Info("Shutting down activator")
				cancel()
			}()

			go func() {
				if err := eventBus.Subscribe(runCtx); err != nil && runCtx.Err() == nil {
					logger.ErrorContext(runCtx, "Event subscription stopped", "error", err)
					cancel()
				}
			}()

			activator := scheduler.NewActivator(
				persistence,
				gw,
				command.Duration("sync-interval"),
				logger,
			)

			err = activator.Start(runCtx)
			if err != nil && runCtx.Err() != nil {
				return nil
			}

			return err
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
