package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/auth"
	"github.com/congo-pay/custody/internal/identity"
	"github.com/congo-pay/custody/internal/wallet"
)

// RegisterProfileRoute exposes the caller's profile together with their wallet.
func RegisterProfileRoute(r fiber.Router, ids *identity.Service, wallets *wallet.Service) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid := auth.UserID(c)
		user, err := ids.Get(c.UserContext(), uid)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return fiber.NewError(http.StatusUnauthorized, "user not found")
			}
			return apperr.Internal(err)
		}

		var view *wallet.Response
		switch w, err := wallets.GetByOwner(c.UserContext(), uid); {
		case err == nil:
			resp := wallet.ToResponse(w)
			view = &resp
		case !errors.Is(err, wallet.ErrNotFound):
			return apperr.Internal(err)
		}

		return c.Status(http.StatusOK).JSON(apperr.OK(fiber.Map{
			"user": fiber.Map{
				"id":         user.ID,
				"code":       user.Code,
				"phone":      user.Phone,
				"name":       user.Name,
				"tier":       user.Tier,
				"device_id":  user.DeviceID,
				"created_at": user.CreatedAt,
			},
			"wallet": view,
		}))
	})
}
