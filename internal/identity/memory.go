package identity

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory user store for tests and development.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byCode  map[string]string
	byPhone map[string]string
}

// NewMemoryRepository builds an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]User),
		byCode:  make(map[string]string),
		byPhone: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[user.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byPhone[user.Phone]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byCode[user.Code]; exists {
		return ErrDuplicate
	}
	r.byID[user.ID] = user
	r.byCode[user.Code] = user.ID
	r.byPhone[user.Phone] = user.ID
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepository) FindByCode(ctx context.Context, code string) (User, error) {
	r.mu.RLock()
	id, ok := r.byCode[code]
	r.mu.RUnlock()
	if !ok {
		return User{}, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	r.mu.RLock()
	id, ok := r.byPhone[phone]
	r.mu.RUnlock()
	if !ok {
		return User{}, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryRepository) UpdateDevice(_ context.Context, id, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	user.DeviceID = deviceID
	r.byID[id] = user
	return nil
}
