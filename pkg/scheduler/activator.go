// Package scheduler fires schedule-triggered templates on their cron
// expressions. The activator polls the template catalog and keeps one cron
// entry per active schedule template, so edits in the API are picked up
// without a restart.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dvmsuite/clinicflow/pkg/gateway"
	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
)

// DefaultSyncInterval is how often the activator reconciles its cron entries
// against the template catalog.
const DefaultSyncInterval = 30 * time.Second

type entry struct {
	cronID cron.EntryID
	expr   string
}

// Activator owns the cron runtime for schedule triggers.
type Activator struct {
	persistence  persistence.Persistence
	gateway      *gateway.Gateway
	logger       *slog.Logger
	syncInterval time.Duration

	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]entry
}

// NewActivator creates a schedule activator. A non-positive syncInterval
// falls back to DefaultSyncInterval.
func NewActivator(p persistence.Persistence, gw *gateway.Gateway, syncInterval time.Duration, logger *slog.Logger) *Activator {
	if syncInterval <= 0 {
		syncInterval = DefaultSyncInterval
	}

	return &Activator{
		persistence:  p,
		gateway:      gw,
		logger:       logger.With("module", "activator"),
		syncInterval: syncInterval,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries: make(map[string]entry),
	}
}

// Start runs the activator until ctx is cancelled. It syncs immediately,
// then on every tick.
func (a *Activator) Start(ctx context.Context) error {
	a.logger.InfoContext(ctx, "Starting schedule activator", "sync_interval", a.syncInterval)

	if err := a.sync(ctx); err != nil {
		return err
	}

	a.cron.Start()

	ticker := time.NewTicker(a.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.stop()

			return ctx.Err()
		case <-ticker.C:
			if err := a.sync(ctx); err != nil {
				a.logger.ErrorContext(ctx, "Template sync failed", "error", err)
			}
		}
	}
}

func (a *Activator) stop() {
	stopCtx := a.cron.Stop()
	<-stopCtx.Done()
	a.logger.Info("Schedule activator stopped")
}

// sync reconciles cron entries with the active schedule templates: new
// templates get entries, edited cron expressions are replaced, deactivated
// or deleted templates are removed.
func (a *Activator) sync(ctx context.Context) error {
	triggerType := models.TriggerTypeSchedule
	active := true

	result, err := a.persistence.Templates().List(ctx, persistence.ListTemplatesOptions{
		TriggerType: &triggerType,
		IsActive:    &active,
		Limit:       100,
	})
	if err != nil {
		return fmt.Errorf("failed to list schedule templates: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]bool, len(result.Templates))

	for _, template := range result.Templates {
		expr := template.TriggerConfig.CronExpression()
		if expr == "" {
			a.logger.WarnContext(ctx, "Schedule template has no cron expression", "template_id", template.ID)

			continue
		}

		seen[template.ID] = true

		if current, ok := a.entries[template.ID]; ok {
			if current.expr == expr {
				continue
			}

			a.cron.Remove(current.cronID)
			delete(a.entries, template.ID)
		}

		if err := a.add(ctx, template.ID, expr); err != nil {
			a.logger.ErrorContext(ctx, "Failed to schedule template", "template_id", template.ID, "error", err)
		}
	}

	for templateID, current := range a.entries {
		if !seen[templateID] {
			a.cron.Remove(current.cronID)
			delete(a.entries, templateID)
			a.logger.InfoContext(ctx, "Unscheduled template", "template_id", templateID)
		}
	}

	return nil
}

func (a *Activator) add(ctx context.Context, templateID, expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	cronID, err := a.cron.AddFunc(expr, func() {
		a.fire(templateID)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron entry: %w", err)
	}

	a.entries[templateID] = entry{cronID: cronID, expr: expr}
	a.logger.InfoContext(ctx, "Scheduled template", "template_id", templateID, "cron", expr)

	return nil
}

func (a *Activator) fire(templateID string) {
	ctx := context.Background()

	execution, err := a.gateway.FireScheduled(ctx, templateID)
	if err != nil {
		a.logger.ErrorContext(ctx, "Scheduled trigger failed", "template_id", templateID, "error", err)

		return
	}

	a.logger.InfoContext(ctx, "Scheduled trigger fired", "template_id", templateID, "execution_id", execution.ID)
}
