package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/logging"
	"github.com/congo-pay/custody/internal/routes"
)

// Server wraps the Fiber application.
type Server struct {
	app  *fiber.App
	addr string
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(deps routes.Deps) (*Server, error) {
	app := NewApp(deps.Cfg.AppName, deps.Logger)
	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}
	return &Server{app: app, addr: deps.Cfg.Address()}, nil
}

// NewApp builds a Fiber application whose errors are rendered as the
// uniform response envelope.
func NewApp(name string, logger *slog.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger),
	})
}

// ErrorHandler renders domain errors with their mapped status and fiber
// errors with their own code.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(apperr.Result{
				Success:   false,
				ErrorKind: kindForStatus(fe.Code),
				Message:   fe.Message,
			})
		}

		kind := apperr.KindOf(err)
		if kind == apperr.KindInternal || kind == apperr.KindPersistence {
			logging.FromContext(c.UserContext(), logger).Error("request failed", slog.Any("error", err))
		}
		return c.Status(apperr.Status(kind)).JSON(apperr.Failure(err))
	}
}

func kindForStatus(code int) apperr.Kind {
	switch {
	case code == http.StatusBadRequest:
		return apperr.KindValidation
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperr.KindUnauthorized
	case code == http.StatusNotFound:
		return apperr.KindNotFound
	case code == http.StatusConflict:
		return apperr.KindConflict
	case code >= http.StatusInternalServerError:
		return apperr.KindInternal
	default:
		return ""
	}
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
