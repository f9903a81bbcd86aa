package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no wallet matches the lookup key.
	ErrNotFound = errors.New("wallet not found")
	// ErrDuplicate signals an address, code or owner collision on create.
	ErrDuplicate = errors.New("wallet already exists")
)

// Status is the lifecycle state of a wallet. It is scoped to wallets and
// shares no values with resource statuses.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusClosed    Status = "CLOSED"
)

// CanTransact reports whether balance movements are allowed.
func (s Status) CanTransact() bool { return s == StatusActive }

// Wallet is the authoritative balance record of one account. Address and
// Code are unique and never change after creation.
type Wallet struct {
	UUID        string
	Address     string
	Code        string
	Currency    string
	Balance     decimal.Decimal
	PrevBalance decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
