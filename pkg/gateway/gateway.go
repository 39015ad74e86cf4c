// Package gateway is the single entry point through which triggers become
// executions. Manual API triggers, bus-delivered events and the schedule
// activator all converge here before reaching the engine.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dvmsuite/clinicflow/pkg/eventbus"
	"github.com/dvmsuite/clinicflow/pkg/events"
	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/services"
)

// Gateway normalizes the three trigger paths into engine start calls.
type Gateway struct {
	engine *services.Engine
	logger *slog.Logger
}

// NewGateway creates a new trigger gateway.
func NewGateway(engine *services.Engine, logger *slog.Logger) *Gateway {
	return &Gateway{
		engine: engine,
		logger: logger.With("module", "gateway"),
	}
}

// ExecuteTemplate starts a template execution for a manual trigger.
func (g *Gateway) ExecuteTemplate(ctx context.Context, templateID string, triggerData map[string]any) (*models.WorkflowExecution, error) {
	return g.engine.StartFromTemplate(ctx, templateID, models.TriggerTypeManual, triggerData)
}

// ExecuteCustom starts an ad-hoc execution for a manual trigger.
func (g *Gateway) ExecuteCustom(ctx context.Context, workflowName string, actions []*models.ActionItem, triggerData map[string]any) (*models.WorkflowExecution, error) {
	return g.engine.StartCustom(ctx, workflowName, actions, models.TriggerTypeManual, triggerData)
}

// FireScheduled starts a template execution on behalf of the schedule
// activator.
func (g *Gateway) FireScheduled(ctx context.Context, templateID string) (*models.WorkflowExecution, error) {
	return g.engine.StartFromTemplate(ctx, templateID, models.TriggerTypeSchedule, nil)
}

// Wire attaches the gateway's bus handlers. The subscription itself is
// started by the caller.
func (g *Gateway) Wire(bus eventbus.EventSubscriber) error {
	if err := bus.Handle(events.TriggerFiredEvent, g.handleTriggerFired); err != nil {
		return fmt.Errorf("failed to register trigger handler: %w", err)
	}

	return nil
}

func (g *Gateway) handleTriggerFired(ctx context.Context, event any) error {
	fired, ok := event.(*events.TriggerFired)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, events.TriggerFiredEvent)
	}

	triggerType := fired.TriggerType
	if triggerType == "" {
		triggerType = models.TriggerTypeEvent
	}

	execution, err := g.engine.StartFromTemplate(ctx, fired.TemplateID, triggerType, fired.TriggerData)
	if err != nil {
		// Inactive or vanished templates are normal during operation; the
		// event must still be acked or the bus would redeliver forever.
		if services.IsConflictError(err) || services.IsNotFoundError(err) {
			g.logger.WarnContext(ctx, "Dropping trigger for unavailable template",
				"template_id", fired.TemplateID,
				"reason", err.Error(),
			)

			return nil
		}

		return err
	}

	g.logger.InfoContext(ctx, "Trigger fired",
		"template_id", fired.TemplateID,
		"execution_id", execution.ID,
		"trigger_type", triggerType,
	)

	return nil
}
