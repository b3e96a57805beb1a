// Package web provides the REST control surface: template management,
// execution creation and the start/pause/resume/cancel lifecycle.
package web

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/flowd-io/flowd/pkg/execution"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/services"
)

// Controller is the engine surface the handlers drive.
type Controller interface {
	Start(ctx context.Context, executionID string) (*execution.StartResult, error)
	Pause(ctx context.Context, executionID string) error
	Resume(ctx context.Context, executionID string) (*execution.StartResult, error)
	Cancel(ctx context.Context, executionID string) error
	Status(ctx context.Context, executionID string) (*models.WorkflowExecution, error)
	RespondApproval(ctx context.Context, executionID, nodeID string, approved bool, comment string) error
}

type APIHandlers struct {
	templateService  *services.Template
	executionService *services.Execution
	controller       Controller
	validator        *validator.Validate
}

func NewAPIHandlers(
	templateService *services.Template,
	executionService *services.Execution,
	controller Controller,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		templateService:  templateService,
		executionService: executionService,
		controller:       controller,
		validator:        validate,
	}
}

// RegisterRoutes mounts every handler on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	t := app.Group("/templates")
	t.Get("/", h.GetTemplates)
	t.Post("/", h.SaveTemplate)
	t.Get("/:id", h.GetTemplate)
	t.Delete("/:id", h.DeleteTemplate)
	t.Get("/:id/executions", h.GetTemplateExecutions)

	e := app.Group("/executions")
	e.Post("/", h.CreateExecution)
	e.Get("/:id", h.GetExecution)
	e.Post("/:id/start", h.StartExecution)
	e.Post("/:id/pause", h.PauseExecution)
	e.Post("/:id/resume", h.ResumeExecution)
	e.Post("/:id/cancel", h.CancelExecution)
	e.Post("/:id/approvals/:nodeId", h.RespondApproval)

	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.templateService.HealthCheck(c.Context())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": message,
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates, err := h.templateService.Templates(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	template, err := h.templateService.TemplateByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) SaveTemplate(c fiber.Ctx) error {
	var template models.WorkflowTemplate
	if err := c.Bind().JSON(&template); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	saved, err := h.templateService.SaveTemplate(c.Context(), &template)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	if err := h.templateService.DeleteTemplate(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetTemplateExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	executions, err := h.executionService.ExecutionsByTemplate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) CreateExecution(c fiber.Ctx) error {
	var req CreateExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	created, err := h.executionService.CreateExecution(c.Context(), req.TemplateID, req.Inputs)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(newExecutionStatusResponse(created))
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	record, err := h.controller.Status(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(newExecutionStatusResponse(record))
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	result, err := h.controller.Start(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if result.Queued {
		return c.Status(fiber.StatusAccepted).JSON(result)
	}

	return c.JSON(result)
}

func (h *APIHandlers) PauseExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	if err := h.controller.Pause(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return h.GetExecution(c)
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	result, err := h.controller.Resume(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if result.Queued {
		return c.Status(fiber.StatusAccepted).JSON(result)
	}

	return c.JSON(result)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	if err := h.controller.Cancel(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return h.GetExecution(c)
}

func (h *APIHandlers) RespondApproval(c fiber.Ctx) error {
	id := c.Params("id")
	nodeID := c.Params("nodeId")

	if id == "" || nodeID == "" {
		return badRequest(c, "Execution ID and node ID are required")
	}

	var req ApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	if err := h.controller.RespondApproval(c.Context(), id, nodeID, *req.Approved, req.Comment); err != nil {
		return handleServiceError(c, err)
	}

	return h.GetExecution(c)
}
