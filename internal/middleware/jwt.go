package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/auth"
	"github.com/congo-pay/custody/internal/logging"
)

// JWTAuth rejects requests without a valid bearer token and stores the
// authenticated user uuid under auth.UserIDKey.
func JWTAuth(issuer *auth.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.ExtractBearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := issuer.Parse(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(auth.UserIDKey, claims.Subject)
		ctx := c.UserContext()
		c.SetUserContext(logging.WithContext(ctx, logging.FromContext(ctx, nil).With("user_id", claims.Subject)))
		return c.Next()
	}
}
