package resource_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/custody/internal/infra"
	"github.com/congo-pay/custody/internal/resource"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := infra.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, infra.Migrate(ctx, pool))
	return pool
}

func pgResource(owner string) resource.Resource {
	now := time.Now().UTC()
	return resource.Resource{
		RUID:                    uuid.NewString(),
		Code:                    "RES-" + uuid.NewString()[:8],
		IdentityNumber:          "VIN-" + uuid.NewString()[:12],
		Name:                    "Toyota Corolla",
		Kind:                    "vehicle",
		CurrentOwnerUUID:        owner,
		Status:                  resource.StatusActive,
		LastOwnershipChangeDate: now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func TestPostgresRegistry_ResolvePriority(t *testing.T) {
	reg := resource.NewPostgresRegistry(openTestDB(t))
	ctx := context.Background()
	owner := uuid.NewString()

	first := pgResource(owner)
	byCode := pgResource(owner)
	byCode.Code = first.RUID
	byIdentity := pgResource(owner)
	byIdentity.IdentityNumber = first.Code
	for _, r := range []resource.Resource{first, byCode, byIdentity} {
		require.NoError(t, reg.Create(ctx, r))
	}

	got, err := reg.Get(ctx, first.RUID)
	require.NoError(t, err)
	assert.Equal(t, first.RUID, got.RUID, "ruid match wins over code")

	got, err = reg.Get(ctx, first.Code)
	require.NoError(t, err)
	assert.Equal(t, first.RUID, got.RUID, "code match wins over identity number")

	got, err = reg.Get(ctx, byCode.IdentityNumber)
	require.NoError(t, err)
	assert.Equal(t, byCode.RUID, got.RUID)

	_, err = reg.Get(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, resource.ErrNotFound)

	dup := pgResource(owner)
	dup.Code = first.Code
	assert.ErrorIs(t, reg.Create(ctx, dup), resource.ErrDuplicate)
}

func TestPostgresRegistry_HistoriesRoundTrip(t *testing.T) {
	reg := resource.NewPostgresRegistry(openTestDB(t))
	ctx := context.Background()
	alice, bob := uuid.NewString(), uuid.NewString()

	r := pgResource(alice)
	require.NoError(t, reg.Create(ctx, r))

	_, err := reg.SetStatus(ctx, resource.StatusUpdate{ResourceID: r.Code, RequesterUUID: alice, Status: resource.StatusSuspended, Reason: "under review"})
	require.NoError(t, err)

	moved, entry, err := reg.ChangeOwner(ctx, resource.OwnerChange{ResourceID: r.IdentityNumber, RequesterUUID: alice, NewOwnerUUID: bob, NewOwnerName: "Bob", Note: "sold"})
	require.NoError(t, err)

	got, err := reg.Get(ctx, r.RUID)
	require.NoError(t, err)
	assert.Equal(t, bob, got.CurrentOwnerUUID)
	assert.Equal(t, alice, got.PrevOwnerUUID)
	assert.Equal(t, resource.StatusActive, got.Status)
	assert.Equal(t, moved.OwnershipHistory, got.OwnershipHistory)
	assert.Equal(t, moved.StatusChangeHistory, got.StatusChangeHistory)
	require.Len(t, got.StatusChangeHistory, 1)
	assert.Equal(t, resource.StatusChange{From: resource.StatusActive, To: resource.StatusSuspended, Reason: "under review", ChangedBy: alice, ChangedAt: got.StatusChangeHistory[0].ChangedAt}, got.StatusChangeHistory[0])
	require.Len(t, got.OwnershipHistory, 1)
	assert.Equal(t, "sold", got.OwnershipHistory[0].Note)

	logs, err := reg.LogByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entry.ID, logs[0].ID)
	assert.Equal(t, resource.StatusReleased, logs[0].Status)
	assert.Equal(t, "under review", logs[0].StatusChangeDetail)
	assert.Equal(t, bob, logs[0].NewOwnerUUID)
	assert.WithinDuration(t, entry.ReleasedDate, logs[0].ReleasedDate, time.Millisecond)

	owned, err := reg.ListByOwner(ctx, bob)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, r.RUID, owned[0].RUID)
}
