package infra

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/custody/internal/config"
	"github.com/congo-pay/custody/internal/identity"
	"github.com/congo-pay/custody/internal/kv"
	"github.com/congo-pay/custody/internal/logging"
	"github.com/congo-pay/custody/internal/resource"
	"github.com/congo-pay/custody/internal/wallet"
)

func TestOpenStoresFallsBackToMemory(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.Config{AppName: "custody"}, logging.Discard())
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &identity.MemoryRepository{}, stores.Users)
	assert.IsType(t, &wallet.MemoryRepository{}, stores.Wallets)
	assert.IsType(t, &resource.MemoryRegistry{}, stores.Resources)
	assert.IsType(t, &kv.MemoryStore{}, stores.Cache)
	assert.NotNil(t, stores.Ledger)
	assert.Empty(t, stores.Checks)
}

func TestNewPostgresPoolRequiresURL(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "")
	assert.Error(t, err)

	_, err = NewRedisClient(context.Background(), "")
	assert.Error(t, err)
}
