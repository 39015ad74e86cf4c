// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dvmsuite/clinicflow/pkg/gateway"
	"github.com/dvmsuite/clinicflow/pkg/models"
	"github.com/dvmsuite/clinicflow/pkg/persistence"
	"github.com/dvmsuite/clinicflow/pkg/registry"
	"github.com/dvmsuite/clinicflow/pkg/services"
)

type APIHandlers struct {
	templateService *services.Template
	engine          *services.Engine
	documentTracker *services.DocumentTracker
	gateway         *gateway.Gateway
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	templateService *services.Template,
	engine *services.Engine,
	documentTracker *services.DocumentTracker,
	gw *gateway.Gateway,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		templateService: templateService,
		engine:          engine,
		documentTracker: documentTracker,
		gateway:         gw,
		validator:       validator,
		registry:        registry,
	}
}

func parsePagination(c fiber.Ctx) (int, int, error) {
	page, limit := 0, 0

	if pageStr := c.Query("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil {
			return 0, 0, err
		}

		page = parsed
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}

		limit = parsed
	}

	// Clamp to the effective values the stores apply so the pagination block
	// echoes what was actually used.
	if page < 1 {
		page = 1
	}

	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	return page, limit, nil
}

// Template endpoints.

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	opts := persistence.ListTemplatesOptions{
		Category: c.Query("category"),
	}

	if triggerTypeStr := c.Query("trigger_type"); triggerTypeStr != "" {
		triggerType := models.TriggerType(triggerTypeStr)
		opts.TriggerType = &triggerType
	}

	if activeStr := c.Query("is_active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		opts.IsActive = &active
	}

	page, limit, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	opts.Page = page
	opts.Limit = limit

	result, err := h.templateService.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"templates": result.Templates,
		"pagination": PaginationResponse{
			Page:       opts.Page,
			Limit:      opts.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.templateService.Create(c.Context(), services.CreateTemplateRequest{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Actions:       toActionItems(req.Actions),
		IsPublic:      req.IsPublic,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	template, err := h.templateService.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	var req UpdateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	update := services.UpdateTemplateRequest{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		TriggerConfig: req.TriggerConfig,
		IsActive:      req.IsActive,
		IsPublic:      req.IsPublic,
	}

	if req.Actions != nil {
		update.Actions = toActionItems(req.Actions)
	}

	updated, err := h.templateService.Update(c.Context(), id, update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	if err := h.templateService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ExecuteTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	var req ExecuteTemplateRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.gateway.ExecuteTemplate(c.Context(), id, req.TriggerData)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) GetPopularTemplates(c fiber.Ctx) error {
	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		limit = parsed
	}

	templates, err := h.templateService.ListPopular(c.Context(), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *APIHandlers) GetTemplateCategories(c fiber.Ctx) error {
	categories, err := h.templateService.ListCategories(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"categories": categories})
}

func (h *APIHandlers) GetTemplatesByCategory(c fiber.Ctx) error {
	category := c.Params("category")
	if category == "" {
		return badRequest(c, "Category is required")
	}

	templates, err := h.templateService.ListByCategory(c.Context(), category)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

// Execution endpoints.

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	opts := persistence.ListExecutionsOptions{
		TemplateID: c.Query("template_id"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ExecutionStatus(statusStr)
		opts.Status = &status
	}

	page, limit, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	opts.Page = page
	opts.Limit = limit

	result, err := h.engine.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": result.Executions,
		"pagination": PaginationResponse{
			Page:       opts.Page,
			Limit:      opts.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

func (h *APIHandlers) ExecuteCustom(c fiber.Ctx) error {
	var req ExecuteCustomRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.gateway.ExecuteCustom(c.Context(), req.WorkflowName, toActionItems(req.Actions), req.TriggerData)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.engine.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.engine.Cancel(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetRecentExecutions(c fiber.Ctx) error {
	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		limit = parsed
	}

	executions, err := h.engine.GetRecent(c.Context(), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetExecutionStats(c fiber.Ctx) error {
	stats, err := h.engine.GetStats(c.Context(), c.Query("template_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

// Document workflow endpoints.

func (h *APIHandlers) CreateDocumentWorkflow(c fiber.Ctx) error {
	var req CreateDocumentWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.documentTracker.Create(c.Context(), services.CreateDocumentWorkflowRequest{
		DocumentID:   req.DocumentID,
		WorkflowName: req.WorkflowName,
		TotalSteps:   req.TotalSteps,
		Steps:        req.Steps,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetDocumentWorkflows(c fiber.Ctx) error {
	opts := persistence.ListDocumentWorkflowsOptions{
		DocumentID: c.Query("document_id"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.DocumentWorkflowStatus(statusStr)
		opts.Status = &status
	}

	page, limit, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	opts.Page = page
	opts.Limit = limit

	result, err := h.documentTracker.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows": result.Workflows,
		"pagination": PaginationResponse{
			Page:       opts.Page,
			Limit:      opts.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

func (h *APIHandlers) GetDocumentWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document workflow ID is required")
	}

	workflow, err := h.documentTracker.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) AdvanceDocumentWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document workflow ID is required")
	}

	workflow, err := h.documentTracker.Advance(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CancelDocumentWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document workflow ID is required")
	}

	workflow, err := h.documentTracker.Cancel(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetDocumentWorkflowsByDocument(c fiber.Ctx) error {
	documentID := c.Params("documentId")
	if documentID == "" {
		return badRequest(c, "Document ID is required")
	}

	workflows, err := h.documentTracker.GetByDocumentID(c.Context(), documentID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetDocumentWorkflowStats(c fiber.Ctx) error {
	stats, err := h.documentTracker.GetStats(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

// Registry endpoint.

func (h *APIHandlers) GetAvailableActions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.AvailableActions()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.templateService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "ClinicFlow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "ClinicFlow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
