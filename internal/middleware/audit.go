package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/sfohq/sop-assistant/internal/audit"
)

const requestIDKey = "request_id"

// RequestAudit issues a request ID per request, audits request and response,
// and exposes the ID to handlers and the response headers.
func RequestAudit(log *audit.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := uuid.NewString()
		c.Locals(requestIDKey, requestID)

		// Capture request data before handler execution (Fiber reuses
		// context objects).
		method := c.Method()
		path := c.Path()

		log.Log(requestID, "http_request", map[string]any{"method": method, "path": path})

		err := c.Next()

		c.Set("X-Request-Id", requestID)
		if err != nil {
			log.LogError(requestID, "http_exception", map[string]any{"path": path}, err)
			return err
		}

		log.Log(requestID, "http_response", map[string]any{
			"status_code": c.Response().StatusCode(),
			"path":        path,
		})
		return nil
	}
}

// RequestID returns the request ID issued by RequestAudit, or empty.
func RequestID(c fiber.Ctx) string {
	if id, ok := c.Locals(requestIDKey).(string); ok {
		return id
	}
	return ""
}
