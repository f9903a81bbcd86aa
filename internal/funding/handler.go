package funding

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/ledger"
	"github.com/congo-pay/custody/internal/wallet"
)

// Handler exposes the wallet funding endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Fund credits the wallet at :address after verifying the payment.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req FundRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	result, err := h.service.FundWallet(c.UserContext(), FundInput{
		Address:    c.Params("address"),
		PaymentRef: req.PaymentRef,
		Amount:     req.Amount,
		Channel:    req.Channel,
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	return c.Status(status).JSON(apperr.OK(FundResponse{
		Wallet:      wallet.ToResponse(result.Wallet),
		Transaction: ledger.ToResponse(result.Entry),
		Replayed:    result.Replayed,
	}))
}
