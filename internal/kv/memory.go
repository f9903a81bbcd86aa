package kv

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type item struct {
	value     string
	expiresAt time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryStore is a process-local Store with lazy expiry.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

// NewMemoryStore builds an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]item), now: time.Now}
}

func (s *MemoryStore) lookup(key string) (item, bool) {
	it, ok := s.items[key]
	if !ok {
		return item{}, false
	}
	if it.expired(s.now()) {
		delete(s.items, key)
		return item{}, false
	}
	return it, true
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return it.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = item{value: value, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.items[key] = item{value: value, expiresAt: s.expiry(ttl)}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lookup(key)
	if !ok {
		return 0, ErrNotFound
	}
	if it.expiresAt.IsZero() {
		return 0, nil
	}
	return it.expiresAt.Sub(s.now()), nil
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lookup(key)
	if !ok {
		s.items[key] = item{value: "1", expiresAt: s.expiry(ttl)}
		return 1, nil
	}
	n, err := strconv.ParseInt(it.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	it.value = strconv.FormatInt(n, 10)
	s.items[key] = it
	return n, nil
}
