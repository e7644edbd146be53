package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/sfohq/sop-assistant/internal/audit"
	"github.com/sfohq/sop-assistant/internal/middleware"
	"github.com/sfohq/sop-assistant/internal/port"
	"github.com/sfohq/sop-assistant/internal/service"
)

// SOPHandler exposes the ingest/search/ask surface.
type SOPHandler struct {
	ingest      *service.IngestService
	retrieval   *service.RetrievalService
	answers     *service.AnswerService
	audit       *audit.Logger
	sopPath     string
	defaultTopK int
}

// NewSOPHandler creates the handler for SOP routes.
func NewSOPHandler(ingest *service.IngestService, retrieval *service.RetrievalService, answers *service.AnswerService, auditLog *audit.Logger, sopPath string, defaultTopK int) *SOPHandler {
	if defaultTopK <= 0 {
		defaultTopK = 4
	}
	return &SOPHandler{
		ingest:      ingest,
		retrieval:   retrieval,
		answers:     answers,
		audit:       auditLog,
		sopPath:     sopPath,
		defaultTopK: defaultTopK,
	}
}

// Register sets up SOP routes.
func (h *SOPHandler) Register(router fiber.Router) {
	router.Post("/sop/ingest", h.Ingest)
	router.Post("/sop/search", h.Search)
	router.Post("/ask", h.Ask)
}

// Ingest rebuilds the snapshot from the configured SOP document.
func (h *SOPHandler) Ingest(c fiber.Ctx) error {
	report, err := h.ingest.Ingest(c.Context(), h.sopPath)
	if err != nil {
		return fail(c, err)
	}
	h.audit.Log(middleware.RequestID(c), "sop_ingested", map[string]any{
		"chunks": report.Chunks, "index_file": report.IndexFile, "meta_file": report.MetaFile,
	})
	return c.JSON(report)
}

// Search runs retrieval only, without gating or synthesis.
func (h *SOPHandler) Search(c fiber.Ctx) error {
	var body struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}
	if body.TopK <= 0 {
		body.TopK = h.defaultTopK
	}

	result, err := h.retrieval.Search(c.Context(), body.Query, body.TopK)
	if err != nil {
		return fail(c, err)
	}
	h.audit.Log(middleware.RequestID(c), "sop_search", map[string]any{
		"query": body.Query, "top_k": body.TopK,
	})
	return c.JSON(result)
}

// Ask answers a question from the SOPs, or returns the escalation notice.
func (h *SOPHandler) Ask(c fiber.Ctx) error {
	var body struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question is required"})
	}
	if body.TopK <= 0 {
		body.TopK = h.defaultTopK
	}

	answer, err := h.answers.Answer(c.Context(), body.Question, body.TopK)
	if err != nil {
		return fail(c, err)
	}
	h.audit.Log(middleware.RequestID(c), "rag_answer", map[string]any{
		"question": body.Question, "confidence": answer.Confidence, "needs_escalation": answer.NeedsEscalation,
	})
	return c.JSON(answer)
}

// fail maps the port error kinds onto HTTP status codes.
func fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, port.ErrNotIngested):
		status = fiber.StatusConflict
	case errors.Is(err, port.ErrRateLimited), errors.Is(err, port.ErrTimeout):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, port.ErrProvider), errors.Is(err, port.ErrSynthesis):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
