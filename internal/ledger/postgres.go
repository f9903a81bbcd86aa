package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/custody/internal/wallet"
)

// PostgresLedger applies wallet mutations and ledger inserts in one
// PostgreSQL transaction, holding row locks on the touched wallets.
type PostgresLedger struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const entryColumns = `id::text, uuid::text, COALESCE(recipient_uuid::text, ''), activity, COALESCE(sender, ''), COALESCE(recipient, ''),
        amount::text, ref, channel, narration, status, created_at`

// Credit records a verified external payment into a wallet.
func (l *PostgresLedger) Credit(ctx context.Context, input CreditInput) (Posting, error) {
	if err := validateCredit(input); err != nil {
		return Posting{}, err
	}
	if input.Ref == "" {
		input.Ref = uuid.NewString()
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Posting{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, input.Address)
	if err != nil {
		return Posting{}, err
	}

	if existing, err := entryByRef(ctx, tx, ActivityCredit, input.Ref); err == nil {
		return Posting{Entry: existing, Wallet: w}, ErrDuplicateTransaction
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Posting{}, err
	}
	if !w.Status.CanTransact() {
		return Posting{}, ErrWalletInactive
	}

	now := l.now()
	updated := applyCredit(w, input.Amount, now)
	if err := updateBalance(ctx, tx, updated); err != nil {
		return Posting{}, err
	}

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
	if err := insertEntry(ctx, tx, entry); err != nil {
		return l.duplicateOr(ctx, tx, ActivityCredit, input.Ref, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Posting{}, err
	}
	return Posting{Entry: entry, Wallet: updated}, nil
}

// Transfer debits the sender and credits the recipient. Both wallet rows are
// locked in address order before the balance check.
func (l *PostgresLedger) Transfer(ctx context.Context, input TransferInput) (Posting, error) {
	if err := validateTransfer(input); err != nil {
		return Posting{}, err
	}
	if input.Ref == "" {
		input.Ref = uuid.NewString()
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Posting{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	locked, err := lockWallets(ctx, tx, input.FromAddress, input.ToAddress)
	if err != nil {
		return Posting{}, err
	}
	from, ok := locked[input.FromAddress]
	if !ok {
		return Posting{}, wallet.ErrNotFound
	}
	to, ok := locked[input.ToAddress]
	if !ok {
		return Posting{}, wallet.ErrNotFound
	}

	if existing, err := entryByRef(ctx, tx, ActivityDebit, input.Ref); err == nil {
		return Posting{Entry: existing, Wallet: from, Counterparty: to}, ErrDuplicateTransaction
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Posting{}, err
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

	if err := updateBalance(ctx, tx, debited); err != nil {
		return Posting{}, err
	}
	if err := updateBalance(ctx, tx, credited); err != nil {
		return Posting{}, err
	}

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
	if err := insertEntry(ctx, tx, entry); err != nil {
		return l.duplicateOr(ctx, tx, ActivityDebit, input.Ref, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Posting{}, err
	}
	return Posting{Entry: entry, Wallet: debited, Counterparty: credited}, nil
}

// Entries lists the user's ledger lines newest first.
func (l *PostgresLedger) Entries(ctx context.Context, ownerUUID string) ([]Entry, error) {
	ownerID, err := uuid.Parse(ownerUUID)
	if err != nil {
		return nil, nil
	}
	rows, err := l.db.Query(ctx, `SELECT `+entryColumns+` FROM wallet_ledger
        WHERE uuid = $1 OR recipient_uuid = $1
        ORDER BY created_at DESC, seq DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func lockWallet(ctx context.Context, tx pgx.Tx, address string) (wallet.Wallet, error) {
	w, err := wallet.ScanWallet(tx.QueryRow(ctx, `SELECT `+wallet.Columns+` FROM wallets WHERE address = $1 FOR UPDATE`, address))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Wallet{}, wallet.ErrNotFound
	}
	return w, err
}

func lockWallets(ctx context.Context, tx pgx.Tx, addresses ...string) (map[string]wallet.Wallet, error) {
	rows, err := tx.Query(ctx, `SELECT `+wallet.Columns+` FROM wallets
        WHERE address = ANY($1) ORDER BY address FOR UPDATE`, addresses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]wallet.Wallet, len(addresses))
	for rows.Next() {
		w, err := wallet.ScanWallet(rows)
		if err != nil {
			return nil, err
		}
		out[w.Address] = w
	}
	return out, rows.Err()
}

func updateBalance(ctx context.Context, tx pgx.Tx, w wallet.Wallet) error {
	cmd, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1::numeric, prev_balance = $2::numeric, updated_at = $3
        WHERE address = $4`, w.Balance.String(), w.PrevBalance.String(), w.UpdatedAt, w.Address)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("update wallet %s: %w", w.Address, wallet.ErrNotFound)
	}
	return nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, e Entry) error {
	_, err := tx.Exec(ctx, `INSERT INTO wallet_ledger
        (id, uuid, recipient_uuid, activity, sender, recipient, amount, ref, channel, narration, status, created_at)
        VALUES ($1::uuid, $2::uuid, NULLIF($3, '')::uuid, $4, NULLIF($5, ''), NULLIF($6, ''), $7::numeric, $8, $9, $10, $11, $12)`,
		e.ID, e.UUID, e.RecipientUUID, string(e.Activity), e.Sender, e.Recipient, e.Amount.String(),
		e.Ref, e.Channel, e.Narration, string(e.Status), e.CreatedAt)
	return err
}

// duplicateOr reports a ref claimed by a concurrent transaction that locked
// other wallets as ErrDuplicateTransaction, returning the committed entry.
func (l *PostgresLedger) duplicateOr(ctx context.Context, tx pgx.Tx, activity Activity, ref string, err error) (Posting, error) {
	if !isUniqueViolation(err) {
		return Posting{}, err
	}
	_ = tx.Rollback(ctx)
	existing, lookupErr := entryByRef(ctx, l.db, activity, ref)
	if lookupErr != nil {
		return Posting{}, fmt.Errorf("%w: %v", ErrDuplicateTransaction, lookupErr)
	}
	return Posting{Entry: existing}, ErrDuplicateTransaction
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func entryByRef(ctx context.Context, q rowQuerier, activity Activity, ref string) (Entry, error) {
	return scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM wallet_ledger WHERE activity = $1 AND ref = $2`, string(activity), ref))
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e                Entry
		activity, status string
		amount           string
	)
	if err := row.Scan(&e.ID, &e.UUID, &e.RecipientUUID, &activity, &e.Sender, &e.Recipient,
		&amount, &e.Ref, &e.Channel, &e.Narration, &status, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Entry{}, fmt.Errorf("parse amount: %w", err)
	}
	e.Amount = d
	e.Activity = Activity(activity)
	e.Status = EntryStatus(status)
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
