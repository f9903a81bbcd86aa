package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/payments"
)

// RegisterPaymentRoutes wires wallet-to-wallet transfers.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, rateLimiter, idempotent fiber.Handler) {
	r.Post("/payments/transfer", rateLimiter, idempotent, h.Transfer)
}
