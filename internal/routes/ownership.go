package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/ownership"
)

// RegisterOwnershipRoutes wires resource custody endpoints.
func RegisterOwnershipRoutes(r fiber.Router, h *ownership.Handler, idempotent fiber.Handler) {
	r.Post("/resources", idempotent, h.Register)
	r.Get("/resources", h.ListOwned)
	r.Get("/resources/:id", h.Get)
	r.Post("/resources/:id/transfer", idempotent, h.Transfer)
	r.Patch("/resources/:id/status", h.UpdateStatus)
	r.Get("/ownership/history", h.History)
}
