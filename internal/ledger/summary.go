package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody/internal/history"
)

// Totals aggregates a user's ledger activity.
type Totals struct {
	TotalCredit decimal.Decimal
	TotalDebit  decimal.Decimal
}

// Summarize folds entries into credit and debit totals from the point of view
// of ownerUUID: its own credits and inbound transfers count as credit, its
// own debits as debit. Entries unrelated to the owner are ignored.
func Summarize(ownerUUID string, entries []Entry) Totals {
	zero := Totals{TotalCredit: decimal.Zero, TotalDebit: decimal.Zero}
	return history.Fold(entries, zero, func(t Totals, e Entry) Totals {
		switch {
		case e.UUID == ownerUUID && e.Activity == ActivityCredit:
			t.TotalCredit = t.TotalCredit.Add(e.Amount)
		case e.UUID == ownerUUID && e.Activity == ActivityDebit:
			t.TotalDebit = t.TotalDebit.Add(e.Amount)
		case e.RecipientUUID == ownerUUID && e.Activity == ActivityDebit:
			t.TotalCredit = t.TotalCredit.Add(e.Amount)
		}
		return t
	})
}
