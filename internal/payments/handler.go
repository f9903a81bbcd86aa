package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/auth"
	"github.com/congo-pay/custody/internal/history"
	"github.com/congo-pay/custody/internal/ledger"
	"github.com/congo-pay/custody/internal/wallet"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
	wallets *wallet.Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service, wallets *wallet.Service) *Handler {
	return &Handler{service: service, wallets: wallets}
}

type transferRequest struct {
	FromAddress   string          `json:"fromAddress"`
	RecipientCode string          `json:"recipientCode"`
	Amount        decimal.Decimal `json:"amount"`
	Narration     string          `json:"narration"`
	Ref           string          `json:"ref"`
}

type transferResponse struct {
	Wallet      wallet.Response      `json:"wallet"`
	Transaction ledger.EntryResponse `json:"transaction"`
	Replayed    bool                 `json:"replayed,omitempty"`
}

type summaryResponse struct {
	UUID        string `json:"uuid"`
	TotalCredit string `json:"totalCredit"`
	TotalDebit  string `json:"totalDebit"`
}

// Transfer processes a wallet-to-wallet transfer.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromAddress:   req.FromAddress,
		RecipientCode: req.RecipientCode,
		Amount:        req.Amount,
		Narration:     req.Narration,
		Ref:           req.Ref,
		RequesterUUID: auth.UserID(c),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.Status(status).JSON(apperr.OK(transferResponse{
		Wallet:      wallet.ToResponse(res.Wallet),
		Transaction: ledger.ToResponse(res.Entry),
		Replayed:    res.Replayed,
	}))
}

// Transactions lists the transaction log of the wallet at :id.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(history.Map(entries, ledger.ToResponse)))
}

// Summary returns credit and debit totals of the wallet at :id.
func (h *Handler) Summary(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	totals, err := h.service.Summary(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(summaryResponse{
		UUID:        owner,
		TotalCredit: totals.TotalCredit.StringFixed(2),
		TotalDebit:  totals.TotalDebit.StringFixed(2),
	}))
}

// owner resolves :id to the wallet owner and checks the caller may read it.
func (h *Handler) owner(c *fiber.Ctx) (string, error) {
	w, err := h.wallets.Find(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return "", apperr.NotFound("wallet not found", err)
		}
		return "", apperr.Internal(err)
	}
	if uid := auth.UserID(c); uid != "" && uid != w.UUID {
		return "", apperr.Unauthorized("not owner of wallet", nil)
	}
	return w.UUID, nil
}
