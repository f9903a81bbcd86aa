package lock

import (
	"sort"
	"sync"
)

// Keyed hands out one mutex per key. Entries are reference counted so the
// map does not grow with every wallet or resource ever touched.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed returns an empty keyed lock set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock acquires the locks for all keys in lexicographic order, skipping
// duplicates, and returns a function releasing them in reverse order.
func (k *Keyed) Lock(keys ...string) (unlock func()) {
	ordered := normalize(keys)
	held := make([]*entry, 0, len(ordered))
	for _, key := range ordered {
		e := k.acquire(key)
		e.mu.Lock()
		held = append(held, e)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.release(ordered[i])
		}
	}
}

func (k *Keyed) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *Keyed) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
