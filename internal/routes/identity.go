package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/auth"
	"github.com/congo-pay/custody/internal/identity"
)

// RegisterIdentityRoutes wires onboarding. Registration provisions the
// user's wallet under the same account code.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, rateLimiter fiber.Handler) {
	r.Post("/identity/register", rateLimiter, h.Register)
}

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	r.Post("/auth/login", rateLimiter, h.Login)
}

// RegisterDirectoryRoutes exposes user lookups by uuid, code or phone.
func RegisterDirectoryRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/users/:identifier", h.Lookup)
}
