package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/apperr"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Response is the public representation of a wallet.
type Response struct {
	UUID        string    `json:"uuid"`
	Address     string    `json:"address"`
	Code        string    `json:"code"`
	Currency    string    `json:"currency"`
	Balance     string    `json:"balance"`
	PrevBalance string    `json:"prevBalance"`
	Status      Status    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ToResponse renders a wallet with balances fixed at two decimals.
func ToResponse(w Wallet) Response {
	return Response{
		UUID:        w.UUID,
		Address:     w.Address,
		Code:        w.Code,
		Currency:    w.Currency,
		Balance:     w.Balance.StringFixed(2),
		PrevBalance: w.PrevBalance.StringFixed(2),
		Status:      w.Status,
		UpdatedAt:   w.UpdatedAt,
	}
}

// Find looks a wallet up by address or owner uuid.
func (h *Handler) Find(c *fiber.Ctx) error {
	w, err := h.service.Find(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("wallet not found", err)
		}
		return apperr.Internal(err)
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(ToResponse(w)))
}
