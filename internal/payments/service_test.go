package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/ledger"
	"github.com/congo-pay/custody/internal/logging"
	"github.com/congo-pay/custody/internal/notification"
	"github.com/congo-pay/custody/internal/wallet"
)

type chanNotifier chan notification.Message

func (c chanNotifier) Send(_ context.Context, m notification.Message) error {
	c <- m
	return nil
}

type phoneBook map[string]string

func (p phoneBook) Phone(_ context.Context, userID string) string { return p[userID] }

type fixture struct {
	svc    *Service
	ledger ledger.Ledger
	repo   *wallet.MemoryRepository
	a, b   wallet.Wallet
	sent   chanNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	walletSvc := wallet.NewService(repo)

	a, err := walletSvc.Create(ctx, wallet.CreateInput{OwnerUUID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet A: %v", err)
	}
	b, err := walletSvc.Create(ctx, wallet.CreateInput{OwnerUUID: uuid.NewString(), Code: "B12345"})
	if err != nil {
		t.Fatalf("create wallet B: %v", err)
	}

	l := ledger.NewInMemory(repo)
	ledger.SeedBalance(l, a.Address, decimal.NewFromInt(1500))
	ledger.SeedBalance(l, b.Address, decimal.NewFromInt(200))

	sent := make(chanNotifier, 8)
	svc := NewService(l, walletSvc, Options{
		Dispatcher: notification.NewDispatcher(sent, logging.Discard(), nil),
		Contacts:   phoneBook{a.UUID: "+2348000000001", b.UUID: "+2348000000002"},
		Logger:     logging.Discard(),
	})
	return fixture{svc: svc, ledger: l, repo: repo, a: a, b: b, sent: sent}
}

func (f fixture) balance(t *testing.T, address string) decimal.Decimal {
	t.Helper()
	w, err := f.repo.GetByAddress(context.Background(), address)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w.Balance
}

func TestTransferMovesFundsAndNotifiesBothParties(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Transfer(context.Background(), TransferInput{
		FromAddress:   f.a.Address,
		RecipientCode: "b12345",
		Amount:        decimal.NewFromInt(300),
		Narration:     "rent",
		RequesterUUID: f.a.UUID,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !res.Wallet.Balance.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("expected sender balance 1200, got %s", res.Wallet.Balance)
	}
	if got := f.balance(t, f.b.Address); !got.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected recipient balance 500, got %s", got)
	}
	if res.Entry.Activity != ledger.ActivityDebit || res.Entry.Recipient != f.b.Address || res.Entry.Sender != f.a.Address {
		t.Fatalf("unexpected entry %+v", res.Entry)
	}

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-f.sent:
			got[m.Kind] = m.Destination
		case <-time.After(time.Second):
			t.Fatalf("expected two notifications, got %d", len(got))
		}
	}
	if got[notification.KindTransferSent] != "+2348000000001" || got[notification.KindTransferReceived] != "+2348000000002" {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestTransferErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input TransferInput
		kind  apperr.Kind
	}{
		{"insufficient funds", TransferInput{FromAddress: f.a.Address, RecipientCode: f.b.Code, Amount: decimal.NewFromInt(1501)}, apperr.KindConflict},
		{"zero amount", TransferInput{FromAddress: f.a.Address, RecipientCode: f.b.Code, Amount: decimal.Zero}, apperr.KindValidation},
		{"sub-cent amount", TransferInput{FromAddress: f.a.Address, RecipientCode: f.b.Code, Amount: decimal.RequireFromString("0.005")}, apperr.KindValidation},
		{"unknown sender", TransferInput{FromAddress: "0xmissing", RecipientCode: f.b.Code, Amount: decimal.NewFromInt(1)}, apperr.KindNotFound},
		{"unknown recipient", TransferInput{FromAddress: f.a.Address, RecipientCode: "Z00000", Amount: decimal.NewFromInt(1)}, apperr.KindNotFound},
		{"self transfer", TransferInput{FromAddress: f.a.Address, RecipientCode: f.a.Code, Amount: decimal.NewFromInt(1)}, apperr.KindConflict},
		{"not owner", TransferInput{FromAddress: f.a.Address, RecipientCode: f.b.Code, Amount: decimal.NewFromInt(1), RequesterUUID: f.b.UUID}, apperr.KindUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Transfer(ctx, tc.input)
			if apperr.KindOf(err) != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}

	if got := f.balance(t, f.a.Address); !got.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("sender mutated by failed transfers: %s", got)
	}
	if got := f.balance(t, f.b.Address); !got.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("recipient mutated by failed transfers: %s", got)
	}

	_, err := f.svc.Transfer(ctx, cases[0].input)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds cause, got %v", err)
	}
}

func TestTransferReplaysReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := TransferInput{FromAddress: f.a.Address, RecipientCode: f.b.Code, Amount: decimal.NewFromInt(100), Ref: "tx-1"}

	first, err := f.svc.Transfer(ctx, in)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	second, err := f.svc.Transfer(ctx, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Replayed || second.Entry.ID != first.Entry.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Entry.ID, second)
	}
	if got := f.balance(t, f.a.Address); !got.Equal(decimal.NewFromInt(1400)) {
		t.Fatalf("expected one debit, balance=%s", got)
	}

	// Same reference from another sender or for another amount is not a replay.
	_, err = f.svc.Transfer(ctx, TransferInput{FromAddress: f.b.Address, RecipientCode: f.a.Code, Amount: decimal.NewFromInt(1), Ref: "tx-1"})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for reused reference, got %v", err)
	}
	_, err = f.svc.Transfer(ctx, TransferInput{FromAddress: f.a.Address, RecipientCode: f.b.Code, Amount: decimal.NewFromInt(7), Ref: "tx-1"})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for reused reference with new amount, got %v", err)
	}
}

func TestHistoryAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Transfer(ctx, TransferInput{FromAddress: f.a.Address, RecipientCode: f.b.Code, Amount: decimal.NewFromInt(300)}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := f.svc.Transfer(ctx, TransferInput{FromAddress: f.b.Address, RecipientCode: f.a.Code, Amount: decimal.RequireFromString("50.25")}); err != nil {
		t.Fatalf("transfer back: %v", err)
	}

	entries, err := f.svc.History(ctx, f.a.UUID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].CreatedAt.Before(entries[1].CreatedAt) {
		t.Fatal("expected newest first")
	}

	totals, err := f.svc.Summary(ctx, f.a.UUID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !totals.TotalDebit.Equal(decimal.NewFromInt(300)) || !totals.TotalCredit.Equal(decimal.RequireFromString("50.25")) {
		t.Fatalf("unexpected totals %+v", totals)
	}
}
