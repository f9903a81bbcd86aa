package wallet

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
)

// Repository persists wallet records.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	GetByAddress(ctx context.Context, address string) (Wallet, error)
	GetByCode(ctx context.Context, code string) (Wallet, error)
	GetByOwner(ctx context.Context, ownerUUID string) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Columns selected by every wallet query; balances travel as text to keep
// numeric precision.
const Columns = `uuid, address, code, currency, balance::text, prev_balance::text, status, created_at, updated_at`

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	ownerID, err := uuid.Parse(w.UUID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (uuid, address, code, currency, balance, prev_balance, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $8)`,
		ownerID, w.Address, w.Code, w.Currency, w.Balance.String(), w.PrevBalance.String(), string(w.Status), w.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByAddress fetches a wallet by its public address.
func (r *PostgresRepository) GetByAddress(ctx context.Context, address string) (Wallet, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM wallets WHERE address = $1`, address)
}

// GetByCode fetches a wallet by its human-readable code.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (Wallet, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM wallets WHERE code = $1`, code)
}

// GetByOwner fetches the wallet belonging to a user.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerUUID string) (Wallet, error) {
	ownerID, err := uuid.Parse(ownerUUID)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+Columns+` FROM wallets WHERE uuid = $1`, ownerID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (Wallet, error) {
	w, err := ScanWallet(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrNotFound
	}
	return w, err
}

// ScanWallet reads one row selected with Columns.
func ScanWallet(row pgx.Row) (Wallet, error) {
	var (
		w                   Wallet
		ownerID             uuid.UUID
		balance, prev       string
		status              string
		createdAt, updateAt time.Time
	)
	if err := row.Scan(&ownerID, &w.Address, &w.Code, &w.Currency, &balance, &prev, &status, &createdAt, &updateAt); err != nil {
		return Wallet{}, err
	}
	var err error
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return Wallet{}, fmt.Errorf("parse balance: %w", err)
	}
	if w.PrevBalance, err = decimal.NewFromString(prev); err != nil {
		return Wallet{}, fmt.Errorf("parse prev balance: %w", err)
	}
	w.UUID = ownerID.String()
	w.Status = Status(status)
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updateAt.UTC()
	return w, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
