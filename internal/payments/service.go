package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/ledger"
	"github.com/congo-pay/custody/internal/metrics"
	"github.com/congo-pay/custody/internal/money"
	"github.com/congo-pay/custody/internal/notification"
	"github.com/congo-pay/custody/internal/wallet"
)

const operationTransfer = "transfer"

// Service moves value between wallets and answers transaction log queries.
type Service struct {
	ledger     ledger.Ledger
	wallets    *wallet.Service
	dispatcher *notification.Dispatcher
	contacts   notification.Contacts
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Dispatcher *notification.Dispatcher
	Contacts   notification.Contacts
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// NewService constructs a payment service.
func NewService(ledgerBackend ledger.Ledger, wallets *wallet.Service, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		ledger:     ledgerBackend,
		wallets:    wallets,
		dispatcher: opts.Dispatcher,
		contacts:   opts.Contacts,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

// TransferInput captures the data needed to move funds between wallets.
// RequesterUUID, when set, must own the source wallet. Ref makes the
// transfer idempotent; an empty Ref generates one.
type TransferInput struct {
	FromAddress   string
	RecipientCode string
	Amount        decimal.Decimal
	Narration     string
	Ref           string
	RequesterUUID string
}

// TransferResult carries the sender's updated wallet and the DEBIT entry.
type TransferResult struct {
	Wallet   wallet.Wallet
	Entry    ledger.Entry
	Replayed bool
}

// Transfer debits the sender and credits the wallet holding RecipientCode as
// one unit.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (res TransferResult, err error) {
	defer func() { s.metrics.ObserveLedger(operationTransfer, err) }()

	if err := money.ValidatePositive(input.Amount); err != nil {
		return TransferResult{}, apperr.Validation(err.Error())
	}

	from, err := s.wallets.Find(ctx, input.FromAddress)
	if err != nil {
		return TransferResult{}, s.translate(err, input.FromAddress)
	}
	if input.RequesterUUID != "" && from.UUID != input.RequesterUUID {
		return TransferResult{}, apperr.Unauthorized("not owner of source wallet", nil)
	}
	to, err := s.wallets.GetByCode(ctx, input.RecipientCode)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return TransferResult{}, apperr.NotFound("recipient wallet not found", err)
		}
		return TransferResult{}, s.translate(err, input.RecipientCode)
	}
	if to.Address == from.Address {
		return TransferResult{}, apperr.Conflict("cannot transfer to the same wallet", ledger.ErrSameWallet)
	}

	posting, err := s.ledger.Transfer(context.WithoutCancel(ctx), ledger.TransferInput{
		FromAddress: from.Address,
		ToAddress:   to.Address,
		Amount:      input.Amount,
		Ref:         strings.TrimSpace(input.Ref),
		Narration:   strings.TrimSpace(input.Narration),
	})
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		e := posting.Entry
		if e.Sender != from.Address || e.Recipient != to.Address || !e.Amount.Equal(input.Amount) {
			return TransferResult{}, apperr.Conflict("reference already used", err)
		}
		return TransferResult{Wallet: posting.Wallet, Entry: posting.Entry, Replayed: true}, nil
	}
	if err != nil {
		return TransferResult{}, s.translate(err, from.Address)
	}

	s.notify(ctx, posting)
	return TransferResult{Wallet: posting.Wallet, Entry: posting.Entry}, nil
}

// History lists the transactions a user sent, received or was credited,
// newest first.
func (s *Service) History(ctx context.Context, ownerUUID string) ([]ledger.Entry, error) {
	entries, err := s.ledger.Entries(ctx, ownerUUID)
	if err != nil {
		return nil, s.translate(err, ownerUUID)
	}
	return entries, nil
}

// Summary totals a user's credits and debits.
func (s *Service) Summary(ctx context.Context, ownerUUID string) (ledger.Totals, error) {
	entries, err := s.History(ctx, ownerUUID)
	if err != nil {
		return ledger.Totals{}, err
	}
	return ledger.Summarize(ownerUUID, entries), nil
}

func (s *Service) notify(ctx context.Context, p ledger.Posting) {
	if s.dispatcher == nil || s.contacts == nil {
		return
	}
	amount := p.Entry.Amount.StringFixed(2)
	s.dispatcher.Dispatch(
		notification.Message{
			Kind:        notification.KindTransferSent,
			Destination: s.contacts.Phone(ctx, p.Wallet.UUID),
			Body: fmt.Sprintf("You sent %s %s to %s. New balance: %s.",
				p.Wallet.Currency, amount, p.Counterparty.Code, p.Wallet.Balance.StringFixed(2)),
		},
		notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: s.contacts.Phone(ctx, p.Counterparty.UUID),
			Body: fmt.Sprintf("You received %s %s from %s. New balance: %s.",
				p.Counterparty.Currency, amount, p.Wallet.Code, p.Counterparty.Balance.StringFixed(2)),
		},
	)
}

func (s *Service) translate(err error, subject string) error {
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		return apperr.NotFound("wallet not found", err)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return apperr.Conflict("insufficient funds", err)
	case errors.Is(err, ledger.ErrSameWallet):
		return apperr.Conflict("cannot transfer to the same wallet", err)
	case errors.Is(err, ledger.ErrWalletInactive):
		return apperr.Conflict("wallet is not active", err)
	case errors.Is(err, money.ErrInvalidAmount):
		return apperr.Validation(err.Error())
	default:
		s.logger.Error("payment operation failed", "subject", subject, "error", err)
		return apperr.Persistence(err)
	}
}
