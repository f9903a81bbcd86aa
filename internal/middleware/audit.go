package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/auth"
	"github.com/congo-pay/custody/internal/logging"
	"github.com/congo-pay/custody/internal/metrics"
)

// Audit emits one structured log line per request. Failed requests are
// logged at warn for client errors and error for server errors.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := statusOf(c, err)
		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if uid := auth.UserID(c); uid != "" {
			attrs = append(attrs, slog.String("user_id", uid))
		}

		log := logging.FromContext(c.UserContext(), logger)
		switch {
		case err != nil && status >= fiber.StatusInternalServerError:
			log.Error("request completed", append(attrs, slog.Any("error", err))...)
		case err != nil:
			log.Warn("request completed", append(attrs, slog.String("error", err.Error()))...)
		default:
			log.Info("request completed", attrs...)
		}
		return err
	}
}

// Metrics records request count and latency by route template.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		m.ObserveRequest(c.Method(), c.Route().Path, statusOf(c, err), time.Since(start))
		return err
	}
}

// statusOf reports the status the error handler will write for err.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.Status(apperr.KindOf(err))
}
