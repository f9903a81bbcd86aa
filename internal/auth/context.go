package auth

import "github.com/gofiber/fiber/v2"

// UserID returns the authenticated user uuid, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(UserIDKey).(string)
	return uid
}
