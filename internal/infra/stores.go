package infra

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/custody/internal/config"
	"github.com/congo-pay/custody/internal/identity"
	"github.com/congo-pay/custody/internal/kv"
	"github.com/congo-pay/custody/internal/ledger"
	"github.com/congo-pay/custody/internal/resource"
	"github.com/congo-pay/custody/internal/wallet"
)

// Check reports whether a backing service is reachable.
type Check func(ctx context.Context) error

// Stores bundles the storage backends the services run on. Postgres and
// Redis are used when configured; otherwise everything lives in memory and
// is lost on restart.
type Stores struct {
	Users     identity.Repository
	Wallets   wallet.Repository
	Ledger    ledger.Ledger
	Resources resource.Registry
	Cache     kv.Store

	// Checks maps a backend name to its health probe.
	Checks map[string]Check

	db    *pgxpool.Pool
	redis *redis.Client
}

// OpenStores connects the configured backends and applies migrations.
func OpenStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stores, error) {
	s := &Stores{Checks: map[string]Check{}}

	if cfg.DatabaseURL != "" {
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		s.db = pool
		s.Users = identity.NewPostgresRepository(pool)
		s.Wallets = wallet.NewPostgresRepository(pool)
		s.Ledger = ledger.NewPostgresLedger(pool)
		s.Resources = resource.NewPostgresRegistry(pool)
		s.Checks["postgres"] = pool.Ping
		logger.Info("storage backend ready", slog.String("backend", "postgres"))
	} else {
		wallets := wallet.NewMemoryRepository()
		s.Users = identity.NewMemoryRepository()
		s.Wallets = wallets
		s.Ledger = ledger.NewInMemory(wallets)
		s.Resources = resource.NewMemoryRegistry()
		logger.Warn("storage backend ready", slog.String("backend", "memory"))
	}

	if cfg.RedisURL != "" {
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = client
		s.Cache = kv.NewRedisStore(client, cfg.AppName+":")
		s.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		s.Cache = kv.NewMemoryStore()
	}

	return s, nil
}

// Close releases the connections held by the stores.
func (s *Stores) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
