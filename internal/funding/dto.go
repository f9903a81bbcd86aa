package funding

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody/internal/ledger"
	"github.com/congo-pay/custody/internal/wallet"
)

// FundRequest captures a top-up reported by the client. Amount accepts a
// JSON number or a decimal string.
type FundRequest struct {
	PaymentRef string          `json:"paymentRef"`
	Amount     decimal.Decimal `json:"amount"`
	Channel    string          `json:"channel"`
}

// FundResponse represents the API response for a funded wallet.
type FundResponse struct {
	Wallet      wallet.Response      `json:"wallet"`
	Transaction ledger.EntryResponse `json:"transaction"`
	Replayed    bool                 `json:"replayed,omitempty"`
}
