package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/wallet"
)

// Handler exposes identity endpoints.
type Handler struct {
	service   *Service
	directory *Directory
	wallets   *wallet.Service
	logger    *slog.Logger
}

// NewHandler constructs an identity HTTP handler. Registration provisions a
// wallet sharing the user's account code when wallets is set.
func NewHandler(service *Service, directory *Directory, wallets *wallet.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, directory: directory, wallets: wallets, logger: logger}
}

type registerRequest struct {
	Phone    string `json:"phone"`
	PIN      string `json:"pin"`
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type registerResponse struct {
	UserID   string           `json:"user_id"`
	Code     string           `json:"code"`
	Phone    string           `json:"phone"`
	Name     string           `json:"name"`
	Tier     string           `json:"tier"`
	DeviceID string           `json:"device_id,omitempty"`
	Wallet   *wallet.Response `json:"wallet,omitempty"`
}

// Profile is the public view of a user returned by lookups.
type Profile struct {
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles user onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	user, err := h.service.Register(c.UserContext(), Credentials{Phone: req.Phone, PIN: req.PIN, DeviceID: req.DeviceID, Name: req.Name})
	if err != nil {
		return translate(err)
	}

	resp := registerResponse{UserID: user.ID, Code: user.Code, Phone: user.Phone, Name: user.Name, Tier: user.Tier, DeviceID: user.DeviceID}
	if h.wallets != nil {
		w, err := h.wallets.Create(c.UserContext(), wallet.CreateInput{OwnerUUID: user.ID, Currency: req.Currency, Code: user.Code})
		if err != nil {
			h.logger.Error("wallet provisioning failed", "user_id", user.ID, "error", err)
			return apperr.Internal(err)
		}
		wr := wallet.ToResponse(w)
		resp.Wallet = &wr
	}
	return c.Status(http.StatusCreated).JSON(apperr.OK(resp))
}

// Lookup resolves a user by uuid, account code or phone number.
func (h *Handler) Lookup(c *fiber.Ctx) error {
	user, err := h.directory.Lookup(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(Profile{UserID: user.ID, Code: user.Code, Name: user.Name, CreatedAt: user.CreatedAt}))
}

func translate(err error) error {
	switch {
	case errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrInvalidPIN):
		return apperr.Validation(err.Error())
	case errors.Is(err, ErrDuplicate):
		return apperr.Conflict("user already exists", err)
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("user not found", err)
	default:
		return apperr.Internal(err)
	}
}
