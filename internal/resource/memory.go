package resource

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/custody/internal/history"
	"github.com/congo-pay/custody/internal/lock"
)

// MemoryRegistry keeps resources in process memory for tests and
// development.
type MemoryRegistry struct {
	mu         sync.RWMutex
	byRUID     map[string]Resource
	byCode     map[string]string
	byIdentity map[string]string
	log        []LogEntry
	locks      *lock.Keyed
	now        func() time.Time
}

// NewMemoryRegistry builds an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byRUID:     make(map[string]Resource),
		byCode:     make(map[string]string),
		byIdentity: make(map[string]string),
		locks:      lock.NewKeyed(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRegistry) Create(_ context.Context, r Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byRUID[r.RUID]; exists {
		return ErrDuplicate
	}
	if _, exists := m.byCode[r.Code]; exists {
		return ErrDuplicate
	}
	if _, exists := m.byIdentity[r.IdentityNumber]; exists {
		return ErrDuplicate
	}
	m.byRUID[r.RUID] = r
	m.byCode[r.Code] = r.RUID
	m.byIdentity[r.IdentityNumber] = r.RUID
	return nil
}

func (m *MemoryRegistry) Get(_ context.Context, id string) (Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ruid, ok := m.resolve(id)
	if !ok {
		return Resource{}, ErrNotFound
	}
	return m.byRUID[ruid], nil
}

func (m *MemoryRegistry) ListByOwner(_ context.Context, ownerUUID string) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Resource
	for _, r := range m.byRUID {
		if r.CurrentOwnerUUID == ownerUUID {
			out = append(out, r)
		}
	}
	return history.NewestFirst(out, func(r Resource) time.Time { return r.CreatedAt }), nil
}

func (m *MemoryRegistry) ChangeOwner(_ context.Context, change OwnerChange) (Resource, LogEntry, error) {
	ruid, unlock, err := m.lockResource(change.ResourceID)
	if err != nil {
		return Resource{}, LogEntry{}, err
	}
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	next, entry, err := applyOwnerChange(m.byRUID[ruid], change, uuid.NewString(), m.now())
	if err != nil {
		return Resource{}, LogEntry{}, err
	}
	m.byRUID[ruid] = next
	m.log = append(m.log, entry)
	return next, entry, nil
}

func (m *MemoryRegistry) SetStatus(_ context.Context, update StatusUpdate) (Resource, error) {
	ruid, unlock, err := m.lockResource(update.ResourceID)
	if err != nil {
		return Resource{}, err
	}
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := applyStatus(m.byRUID[ruid], update, m.now())
	if err != nil {
		return Resource{}, err
	}
	m.byRUID[ruid] = next
	return next, nil
}

func (m *MemoryRegistry) LogByOwner(_ context.Context, ownerUUID string) ([]LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owned := history.Filter(m.log, func(e LogEntry) bool { return e.UUID == ownerUUID })
	return history.NewestFirst(owned, func(e LogEntry) time.Time { return e.ReleasedDate }), nil
}

// lockResource resolves id and holds the per-resource lock. Identifiers are
// immutable so resolving before locking is safe.
func (m *MemoryRegistry) lockResource(id string) (string, func(), error) {
	m.mu.RLock()
	ruid, ok := m.resolve(id)
	m.mu.RUnlock()
	if !ok {
		return "", nil, ErrNotFound
	}
	return ruid, m.locks.Lock(ruid), nil
}

// resolve maps a ruid, code or identity number to a ruid. Callers hold mu.
func (m *MemoryRegistry) resolve(id string) (string, bool) {
	if _, ok := m.byRUID[id]; ok {
		return id, true
	}
	if ruid, ok := m.byCode[id]; ok {
		return ruid, true
	}
	ruid, ok := m.byIdentity[id]
	return ruid, ok
}
