package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/funding"
)

// RegisterFundingRoutes wires verified wallet funding.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, rateLimiter, idempotent fiber.Handler) {
	r.Post("/wallets/:address/fund", rateLimiter, idempotent, h.Fund)
}
