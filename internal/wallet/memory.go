package wallet

import (
	"context"
	"sync"

	"github.com/congo-pay/custody/internal/lock"
)

// MemoryRepository keeps wallets in process memory. Besides the Repository
// contract it exposes per-wallet locking so an in-memory ledger can run
// read-check-write sequences against it.
type MemoryRepository struct {
	mu        sync.RWMutex
	byAddress map[string]Wallet
	byCode    map[string]string
	byOwner   map[string]string
	locks     *lock.Keyed
}

// NewMemoryRepository constructs an in-memory repository for tests and
// development.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byAddress: make(map[string]Wallet),
		byCode:    make(map[string]string),
		byOwner:   make(map[string]string),
		locks:     lock.NewKeyed(),
	}
}

func (r *MemoryRepository) Create(_ context.Context, w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byAddress[w.Address]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byCode[w.Code]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byOwner[w.UUID]; exists {
		return ErrDuplicate
	}
	r.byAddress[w.Address] = w
	r.byCode[w.Code] = w.Address
	r.byOwner[w.UUID] = w.Address
	return nil
}

func (r *MemoryRepository) GetByAddress(_ context.Context, address string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byAddress[address]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (r *MemoryRepository) GetByCode(ctx context.Context, code string) (Wallet, error) {
	r.mu.RLock()
	address, ok := r.byCode[code]
	r.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.GetByAddress(ctx, address)
}

func (r *MemoryRepository) GetByOwner(ctx context.Context, ownerUUID string) (Wallet, error) {
	r.mu.RLock()
	address, ok := r.byOwner[ownerUUID]
	r.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.GetByAddress(ctx, address)
}

// Lock serializes access to the given wallet addresses. Addresses are
// acquired in lexicographic order.
func (r *MemoryRepository) Lock(addresses ...string) (unlock func()) {
	return r.locks.Lock(addresses...)
}

// Commit replaces existing wallets in a single write. Callers must hold the
// wallet locks obtained from Lock.
func (r *MemoryRepository) Commit(wallets ...Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range wallets {
		if _, ok := r.byAddress[w.Address]; !ok {
			return ErrNotFound
		}
	}
	for _, w := range wallets {
		r.byAddress[w.Address] = w
	}
	return nil
}
