package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody/internal/money"
	"github.com/congo-pay/custody/internal/wallet"
)

var (
	// ErrInsufficientFunds occurs when the source wallet lacks available
	// balance to cover a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided reference was already
	// posted for the same activity; the original posting is returned with it.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrWalletInactive is returned when either side of a posting is not ACTIVE.
	ErrWalletInactive = errors.New("wallet is not active")

	// ErrSameWallet rejects transfers whose sender and recipient coincide.
	ErrSameWallet = errors.New("sender and recipient wallets are the same")
)

// Activity is the direction of a ledger entry relative to its owner.
type Activity string

const (
	ActivityCredit Activity = "CREDIT"
	ActivityDebit  Activity = "DEBIT"
)

// EntryStatus is the settlement state recorded on an entry.
type EntryStatus string

const EntryStatusSuccessful EntryStatus = "SUCCESSFUL"

const (
	ChannelTransfer = "wallet_transfer"
)

// Entry is one immutable ledger line. A transfer is recorded as a single
// DEBIT owned by the sender that also names the recipient.
type Entry struct {
	ID            string
	UUID          string
	RecipientUUID string
	Activity      Activity
	Sender        string
	Recipient     string
	Amount        decimal.Decimal
	Ref           string
	Channel       string
	Narration     string
	Status        EntryStatus
	CreatedAt     time.Time
}

// CreditInput funds one wallet from an external, already verified source.
type CreditInput struct {
	Address   string
	Amount    decimal.Decimal
	Ref       string
	Channel   string
	Narration string
}

// TransferInput moves value between two wallets identified by address.
type TransferInput struct {
	FromAddress string
	ToAddress   string
	Amount      decimal.Decimal
	Ref         string
	Narration   string
}

// Posting is the committed outcome of a balance mutation. Wallet is the
// credited wallet for credits and the sender for transfers.
type Posting struct {
	Entry        Entry
	Wallet       wallet.Wallet
	Counterparty wallet.Wallet
}

// Ledger applies balance mutations and their log entries as one unit and
// answers queries over the append-only log.
type Ledger interface {
	Credit(ctx context.Context, input CreditInput) (Posting, error)
	Transfer(ctx context.Context, input TransferInput) (Posting, error)
	// Entries lists entries owned by or addressed to the user, newest first.
	Entries(ctx context.Context, ownerUUID string) ([]Entry, error)
}

func validateCredit(input CreditInput) error {
	return money.ValidatePositive(input.Amount)
}

func validateTransfer(input TransferInput) error {
	if err := money.ValidatePositive(input.Amount); err != nil {
		return err
	}
	if input.FromAddress == input.ToAddress {
		return ErrSameWallet
	}
	return nil
}

func refKey(activity Activity, ref string) string {
	return string(activity) + ":" + ref
}

// applyCredit computes the post-credit wallet state.
func applyCredit(w wallet.Wallet, amount decimal.Decimal, now time.Time) wallet.Wallet {
	w.PrevBalance = w.Balance
	w.Balance = money.Round2(w.Balance.Add(amount))
	w.UpdatedAt = now
	return w
}

// applyDebit computes the post-debit wallet state or reports missing funds.
func applyDebit(w wallet.Wallet, amount decimal.Decimal, now time.Time) (wallet.Wallet, error) {
	if w.Balance.LessThan(amount) {
		return wallet.Wallet{}, ErrInsufficientFunds
	}
	w.PrevBalance = w.Balance
	w.Balance = money.Round2(w.Balance.Sub(amount))
	w.UpdatedAt = now
	return w, nil
}
