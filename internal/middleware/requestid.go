package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/custody/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestID ensures each request carries an identifier and a logger tagged
// with it. Handlers reach the logger through logging.FromContext.
func RequestID(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(requestIDHeader, reqID)
		c.SetUserContext(logging.WithContext(c.UserContext(), logger.With(slog.String("request_id", reqID))))

		return c.Next()
	}
}

// RequestIDFrom returns the identifier assigned by RequestID, or "".
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDHeader).(string)
	return id
}
