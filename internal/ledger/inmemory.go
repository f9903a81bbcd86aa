package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/custody/internal/history"
	"github.com/congo-pay/custody/internal/wallet"
)

type inMemoryLedger struct {
	wallets *wallet.MemoryRepository

	mu      sync.RWMutex
	entries []Entry
	refs    map[string]Posting
	now     func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory ledger over an in-memory
// wallet repository, useful for tests and development.
func NewInMemory(wallets *wallet.MemoryRepository) Ledger {
	return &inMemoryLedger{
		wallets: wallets,
		refs:    make(map[string]Posting),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (l *inMemoryLedger) Credit(ctx context.Context, input CreditInput) (Posting, error) {
	if err := validateCredit(input); err != nil {
		return Posting{}, err
	}
	if input.Ref == "" {
		input.Ref = uuid.NewString()
	}

	unlock := l.wallets.Lock(input.Address)
	defer unlock()

	w, err := l.wallets.GetByAddress(ctx, input.Address)
	if err != nil {
		return Posting{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := refKey(ActivityCredit, input.Ref)
	if res, exists := l.refs[key]; exists {
		return res, ErrDuplicateTransaction
	}
	if !w.Status.CanTransact() {
		return Posting{}, ErrWalletInactive
	}

	now := l.now()
	updated := applyCredit(w, input.Amount, now)
	entry := Entry{
		ID:        uuid.NewString(),
		UUID:      w.UUID,
		Activity:  ActivityCredit,
		Recipient: w.Address,
		Amount:    input.Amount,
		Ref:       input.Ref,
		Channel:   input.Channel,
		Narration: input.Narration,
		Status:    EntryStatusSuccessful,
		CreatedAt: now,
	}

	if err := l.wallets.Commit(updated); err != nil {
		return Posting{}, err
	}
	l.entries = append(l.entries, entry)

	res := Posting{Entry: entry, Wallet: updated}
	l.refs[key] = res
	return res, nil
}

func (l *inMemoryLedger) Transfer(ctx context.Context, input TransferInput) (Posting, error) {
	if err := validateTransfer(input); err != nil {
		return Posting{}, err
	}
	if input.Ref == "" {
		input.Ref = uuid.NewString()
	}

	unlock := l.wallets.Lock(input.FromAddress, input.ToAddress)
	defer unlock()

	from, err := l.wallets.GetByAddress(ctx, input.FromAddress)
	if err != nil {
		return Posting{}, err
	}
	to, err := l.wallets.GetByAddress(ctx, input.ToAddress)
	if err != nil {
		return Posting{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := refKey(ActivityDebit, input.Ref)
	if res, exists := l.refs[key]; exists {
		return res, ErrDuplicateTransaction
	}
	if !from.Status.CanTransact() || !to.Status.CanTransact() {
		return Posting{}, ErrWalletInactive
	}

	now := l.now()
	debited, err := applyDebit(from, input.Amount, now)
	if err != nil {
		return Posting{}, err
	}
	credited := applyCredit(to, input.Amount, now)

	entry := Entry{
		ID:            uuid.NewString(),
		UUID:          from.UUID,
		RecipientUUID: to.UUID,
		Activity:      ActivityDebit,
		Sender:        from.Address,
		Recipient:     to.Address,
		Amount:        input.Amount,
		Ref:           input.Ref,
		Channel:       ChannelTransfer,
		Narration:     input.Narration,
		Status:        EntryStatusSuccessful,
		CreatedAt:     now,
	}

	if err := l.wallets.Commit(debited, credited); err != nil {
		return Posting{}, err
	}
	l.entries = append(l.entries, entry)

	res := Posting{Entry: entry, Wallet: debited, Counterparty: credited}
	l.refs[key] = res
	return res, nil
}

func (l *inMemoryLedger) Entries(_ context.Context, ownerUUID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owned := history.Filter(l.entries, func(e Entry) bool {
		return e.UUID == ownerUUID || e.RecipientUUID == ownerUUID
	})
	return history.NewestFirst(owned, func(e Entry) time.Time { return e.CreatedAt }), nil
}
