package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultCurrency = "NGN"
	createAttempts  = 5
	codeLetters     = "ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// Service exposes wallet provisioning and lookup.
type Service struct {
	repo Repository
}

// NewService builds a wallet service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerUUID string
	Currency  string
	// Code pins the wallet to an existing account code. Empty generates one.
	Code string
}

// Create provisions a wallet with a fresh address and code, retrying when a
// generated identifier collides with an existing wallet. A pinned code that
// collides fails with ErrDuplicate.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	if _, err := uuid.Parse(input.OwnerUUID); err != nil {
		return Wallet{}, fmt.Errorf("invalid owner uuid: %w", err)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	if _, err := s.repo.GetByOwner(ctx, input.OwnerUUID); err == nil {
		return Wallet{}, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return Wallet{}, err
	}

	var lastErr error
	for i := 0; i < createAttempts; i++ {
		address, err := newAddress()
		if err != nil {
			return Wallet{}, err
		}
		code := strings.ToUpper(strings.TrimSpace(input.Code))
		if code == "" {
			if code, err = NewCode(); err != nil {
				return Wallet{}, err
			}
		}
		now := time.Now().UTC()
		w := Wallet{
			UUID:        input.OwnerUUID,
			Address:     address,
			Code:        code,
			Currency:    currency,
			Balance:     decimal.Zero,
			PrevBalance: decimal.Zero,
			Status:      StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		lastErr = s.repo.Create(ctx, w)
		if lastErr == nil {
			return w, nil
		}
		if !errors.Is(lastErr, ErrDuplicate) || input.Code != "" {
			return Wallet{}, lastErr
		}
	}
	return Wallet{}, lastErr
}

// Find resolves a wallet by address, falling back to the owner uuid.
func (s *Service) Find(ctx context.Context, addressOrUUID string) (Wallet, error) {
	key := strings.TrimSpace(addressOrUUID)
	if key == "" {
		return Wallet{}, ErrNotFound
	}
	w, err := s.repo.GetByAddress(ctx, key)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return w, err
	}
	if _, perr := uuid.Parse(key); perr != nil {
		return Wallet{}, ErrNotFound
	}
	return s.repo.GetByOwner(ctx, key)
}

// GetByCode resolves a wallet by its human-readable code.
func (s *Service) GetByCode(ctx context.Context, code string) (Wallet, error) {
	return s.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// GetByOwner returns the wallet of a user.
func (s *Service) GetByOwner(ctx context.Context, ownerUUID string) (Wallet, error) {
	return s.repo.GetByOwner(ctx, ownerUUID)
}

func newAddress() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}

// NewCode generates a human-readable account code: one letter followed by
// five digits.
func NewCode() (string, error) {
	letter, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeLetters))))
	if err != nil {
		return "", err
	}
	digits, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%c%05d", codeLetters[letter.Int64()], digits.Int64()), nil
}
