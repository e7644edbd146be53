package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/sfohq/sop-assistant/internal/audit"
	"github.com/sfohq/sop-assistant/internal/middleware"
	"github.com/sfohq/sop-assistant/internal/service"
)

// IntakeHandler exposes the task intake surface.
type IntakeHandler struct {
	intake *service.IntakeService
	audit  *audit.Logger
}

// NewIntakeHandler creates the intake handler.
func NewIntakeHandler(intake *service.IntakeService, auditLog *audit.Logger) *IntakeHandler {
	return &IntakeHandler{intake: intake, audit: auditLog}
}

// Register sets up intake routes.
func (h *IntakeHandler) Register(router fiber.Router) {
	router.Post("/intake", h.Intake)
}

// Intake turns a raw request message into an enriched tracked task.
func (h *IntakeHandler) Intake(c fiber.Ctx) error {
	var body struct {
		Channel string `json:"channel"`
		Message string `json:"message"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}
	if body.Channel == "" {
		body.Channel = "whatsapp_mock"
	}

	result, err := h.intake.Intake(c.Context(), body.Channel, body.Message)
	if err != nil {
		return fail(c, err)
	}
	h.audit.Log(middleware.RequestID(c), "intake_created_task", map[string]any{
		"category":         result.Payload.Category,
		"needs_approval":   result.Payload.NeedsApproval,
		"needs_escalation": result.Payload.NeedsEscalation,
		"task_id":          result.TaskID,
		"comment_id":       result.CommentID,
	})
	return c.JSON(result)
}
