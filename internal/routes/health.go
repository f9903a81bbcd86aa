package routes

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/congo-pay/custody/internal/metrics"
)

// RegisterHealthRoutes adds the liveness endpoint and the Prometheus scrape
// endpoint.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		names := make([]string, 0, len(d.Stores.Checks))
		for name := range d.Stores.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		report := fiber.Map{}
		for _, name := range names {
			report[name] = "ok"
			if err := d.Stores.Checks[name](ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    report,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	if d.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(d.Registry)))
	}
}
