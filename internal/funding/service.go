package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/ledger"
	"github.com/congo-pay/custody/internal/metrics"
	"github.com/congo-pay/custody/internal/money"
	"github.com/congo-pay/custody/internal/notification"
	"github.com/congo-pay/custody/internal/wallet"
)

const (
	defaultVerifyTimeout = 10 * time.Second
	defaultChannel       = "card"
	operationFund        = "fund"
)

// Service credits wallets from externally settled payments once a verifier
// confirms them.
type Service struct {
	ledger     ledger.Ledger
	wallets    *wallet.Service
	verifier   Verifier
	dispatcher *notification.Dispatcher
	contacts   notification.Contacts
	metrics    *metrics.Metrics
	logger     *slog.Logger
	timeout    time.Duration
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Dispatcher    *notification.Dispatcher
	Contacts      notification.Contacts
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	VerifyTimeout time.Duration
}

// NewService wires a funding service. A nil verifier approves everything.
func NewService(ledgerBackend ledger.Ledger, wallets *wallet.Service, verifier Verifier, opts Options) (*Service, error) {
	if ledgerBackend == nil || wallets == nil {
		return nil, fmt.Errorf("ledger and wallet service are required")
	}
	if verifier == nil {
		verifier = StaticVerifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = defaultVerifyTimeout
	}
	return &Service{
		ledger:     ledgerBackend,
		wallets:    wallets,
		verifier:   verifier,
		dispatcher: opts.Dispatcher,
		contacts:   opts.Contacts,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		timeout:    opts.VerifyTimeout,
	}, nil
}

// FundInput captures a wallet top-up.
type FundInput struct {
	Address    string
	PaymentRef string
	Amount     decimal.Decimal
	Channel    string
}

// FundResult is the committed credit. Replayed is set when PaymentRef had
// already been credited and the original posting is returned.
type FundResult struct {
	Wallet   wallet.Wallet
	Entry    ledger.Entry
	Replayed bool
}

// FundWallet verifies the payment and credits the wallet. Verification runs
// under a timeout and nothing is written unless it succeeds.
func (s *Service) FundWallet(ctx context.Context, input FundInput) (res FundResult, err error) {
	defer func() { s.metrics.ObserveLedger(operationFund, err) }()

	input.PaymentRef = strings.TrimSpace(input.PaymentRef)
	if input.PaymentRef == "" {
		return FundResult{}, apperr.Validation("paymentRef is required")
	}
	if err := money.ValidatePositive(input.Amount); err != nil {
		return FundResult{}, apperr.Validation(err.Error())
	}
	if input.Channel == "" {
		input.Channel = defaultChannel
	}

	w, err := s.wallets.Find(ctx, input.Address)
	if err != nil {
		return FundResult{}, s.translate(err, input.Address)
	}
	if !w.Status.CanTransact() {
		return FundResult{}, apperr.Conflict("wallet is not active", ledger.ErrWalletInactive)
	}

	if err := s.verify(ctx, input); err != nil {
		return FundResult{}, err
	}

	// Once verified the credit runs to completion even if the caller goes away.
	posting, err := s.ledger.Credit(context.WithoutCancel(ctx), ledger.CreditInput{
		Address:   w.Address,
		Amount:    input.Amount,
		Ref:       input.PaymentRef,
		Channel:   input.Channel,
		Narration: "wallet funding " + input.PaymentRef,
	})
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		if posting.Entry.Recipient != w.Address || !posting.Entry.Amount.Equal(input.Amount) {
			return FundResult{}, apperr.Conflict("reference already used", err)
		}
		return FundResult{Wallet: posting.Wallet, Entry: posting.Entry, Replayed: true}, nil
	}
	if err != nil {
		return FundResult{}, s.translate(err, w.Address)
	}

	s.notify(ctx, posting)
	return FundResult{Wallet: posting.Wallet, Entry: posting.Entry}, nil
}

func (s *Service) verify(ctx context.Context, input FundInput) error {
	vctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	verdict, err := s.verifier.Verify(vctx, input.PaymentRef, input.Amount)
	outcome := "verified"
	switch {
	case err != nil:
		outcome = "error"
	case !verdict.Success:
		outcome = "rejected"
	}
	s.metrics.ObserveVerification(outcome, time.Since(start))

	if err != nil {
		s.logger.Warn("payment verification error", "payment_ref", input.PaymentRef, "error", err)
		return apperr.External("payment could not be verified", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}
	if !verdict.Success {
		msg := "payment was not confirmed"
		if verdict.Message != "" {
			msg = msg + ": " + verdict.Message
		}
		return apperr.External(msg, ErrVerificationFailed)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, p ledger.Posting) {
	if s.dispatcher == nil || s.contacts == nil {
		return
	}
	s.dispatcher.Dispatch(notification.Message{
		Kind:        notification.KindWalletFunded,
		Destination: s.contacts.Phone(ctx, p.Wallet.UUID),
		Body: fmt.Sprintf("Your wallet %s was credited with %s %s. New balance: %s.",
			p.Wallet.Code, p.Wallet.Currency, p.Entry.Amount.StringFixed(2), p.Wallet.Balance.StringFixed(2)),
	})
}

func (s *Service) translate(err error, address string) error {
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		return apperr.NotFound("wallet not found", err)
	case errors.Is(err, ledger.ErrWalletInactive):
		return apperr.Conflict("wallet is not active", err)
	case errors.Is(err, money.ErrInvalidAmount):
		return apperr.Validation(err.Error())
	default:
		s.logger.Error("wallet funding failed", "address", address, "error", err)
		return apperr.Persistence(err)
	}
}
