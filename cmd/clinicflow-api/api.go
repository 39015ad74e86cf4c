// Package main provides the ClinicFlow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dvmsuite/clinicflow/pkg/eventbus"
	"github.com/dvmsuite/clinicflow/pkg/gateway"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
	"github.com/dvmsuite/clinicflow/pkg/queue"
	"github.com/dvmsuite/clinicflow/pkg/registry"
	"github.com/dvmsuite/clinicflow/pkg/services"
	"github.com/dvmsuite/clinicflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	registry *registry.Registry
	queue    queue.Queue
	validate *validator.Validate

	templateService *services.Template
	engine          *services.Engine
	documentTracker *services.DocumentTracker
	gateway         *gateway.Gateway
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	registry *registry.Registry,
	q queue.Queue,
	eventBus eventbus.EventBus,
) *API {
	engine := services.NewEngine(p, registry, q, eventBus, logger)

	return &API{
		logger:          logger,
		registry:        registry,
		queue:           q,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		templateService: services.NewTemplate(p),
		engine:          engine,
		documentTracker: services.NewDocumentTracker(p, eventBus, logger),
		gateway:         gateway.NewGateway(engine, logger),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.templateService, a.engine, a.documentTracker, a.gateway, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ClinicFlow API")
	})

	t := app.Group("/templates")
	t.Get("/", handlers.GetTemplates)
	t.Post("/", handlers.CreateTemplate)
	t.Get("/popular", handlers.GetPopularTemplates)
	t.Get("/categories", handlers.GetTemplateCategories)
	t.Get("/categories/:category", handlers.GetTemplatesByCategory)
	t.Get("/:id", handlers.GetTemplate)
	t.Patch("/:id", handlers.UpdateTemplate)
	t.Delete("/:id", handlers.DeleteTemplate)
	t.Post("/:id/execute", handlers.ExecuteTemplate)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Post("/", handlers.ExecuteCustom)
	e.Get("/recent", handlers.GetRecentExecutions)
	e.Get("/stats", handlers.GetExecutionStats)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	d := app.Group("/document-workflows")
	d.Get("/", handlers.GetDocumentWorkflows)
	d.Post("/", handlers.CreateDocumentWorkflow)
	d.Get("/stats", handlers.GetDocumentWorkflowStats)
	d.Get("/:id", handlers.GetDocumentWorkflow)
	d.Post("/:id/advance", handlers.AdvanceDocumentWorkflow)
	d.Post("/:id/cancel", handlers.CancelDocumentWorkflow)

	app.Get("/documents/:documentId/workflows", handlers.GetDocumentWorkflowsByDocument)
	app.Get("/actions", handlers.GetAvailableActions)
	app.Get("/health", handlers.HealthCheck)

	return app
}

// Start serves the API. When the dispatch queue is the in-process one there
// is no separate worker to drain it, so an embedded consume loop runs
// alongside the server.
func (a *API) Start(ctx context.Context, port int) error {
	if _, ok := a.queue.(*queue.GoChannelQueue); ok {
		a.logger.InfoContext(ctx, "In-process queue configured, starting embedded dispatch consumer")

		go func() {
			if err := a.queue.Consume(ctx, a.engine.Dispatch); err != nil {
				a.logger.ErrorContext(ctx, "Embedded dispatch consumer stopped", "error", err)
			}
		}()
	}

	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
