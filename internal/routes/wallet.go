package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/payments"
	"github.com/congo-pay/custody/internal/wallet"
)

// RegisterWalletRoutes wires wallet lookups and the wallet audit views.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, history *payments.Handler) {
	r.Get("/wallets/:id", h.Find)
	r.Get("/wallets/:id/transactions", history.Transactions)
	r.Get("/wallets/:id/summary", history.Summary)
}
