package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// SeedBalance is a test helper that sets the balance of a wallet when using
// the in-memory ledger. It bypasses the log on purpose.
func SeedBalance(l Ledger, address string, amount decimal.Decimal) {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return
	}
	unlock := mem.wallets.Lock(address)
	defer unlock()
	w, err := mem.wallets.GetByAddress(context.Background(), address)
	if err != nil {
		return
	}
	w.Balance = amount
	_ = mem.wallets.Commit(w)
}
