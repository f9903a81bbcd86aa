// Package kv is the injected key-value store used for request-scoped caches
// such as idempotency records and rate-limit counters. MemoryStore serves a
// single node; RedisStore is shared across nodes.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the contract both backends satisfy. A zero ttl means no expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Incr increments a counter, applying ttl only when the key is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
