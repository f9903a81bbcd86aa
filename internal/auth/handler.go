package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/identity"
	"github.com/congo-pay/custody/internal/wallet"
)

// Handler exposes the login endpoint.
type Handler struct {
	ids     *identity.Service
	issuer  *Issuer
	wallets *wallet.Service
}

func NewHandler(ids *identity.Service, issuer *Issuer, wallets *wallet.Service) *Handler {
	return &Handler{ids: ids, issuer: issuer, wallets: wallets}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	PIN      string `json:"pin"`
	DeviceID string `json:"device_id"`
}

type loginResponse struct {
	UserID        string `json:"user_id"`
	Code          string `json:"code"`
	AccessToken   string `json:"access_token"`
	ExpiresIn     int64  `json:"expires_in"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// Login validates credentials and returns an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials),
			errors.Is(err, identity.ErrDeviceMismatch),
			errors.Is(err, identity.ErrDeviceRequired):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		default:
			return apperr.Internal(err)
		}
	}
	token, err := h.issuer.Issue(user)
	if err != nil {
		return apperr.Internal(err)
	}
	resp := loginResponse{UserID: user.ID, Code: user.Code, AccessToken: token.AccessToken, ExpiresIn: token.ExpiresIn}
	if h.wallets != nil {
		if w, err := h.wallets.GetByOwner(c.UserContext(), user.ID); err == nil {
			resp.WalletAddress = w.Address
		}
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(resp))
}
