package resource

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResource(owner string) Resource {
	now := time.Now().UTC()
	return Resource{
		RUID:                    uuid.NewString(),
		Code:                    "RES-" + uuid.NewString()[:8],
		IdentityNumber:          "VIN-" + uuid.NewString()[:12],
		Name:                    "Toyota Corolla",
		Kind:                    "vehicle",
		CurrentOwnerUUID:        owner,
		Status:                  StatusActive,
		LastOwnershipChangeDate: now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" suspended ")
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, s)

	_, err = ParseStatus("LOST")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.False(t, StatusReleased.CanSetDirectly())
	for _, s := range statuses {
		if s != StatusReleased {
			assert.True(t, s.CanSetDirectly(), s)
		}
	}
}

func TestApplyOwnerChange(t *testing.T) {
	alice, bob := uuid.NewString(), uuid.NewString()
	r := newResource(alice)
	r.Status = StatusSuspended
	r.StatusChangeDetail = "under review"
	now := r.CreatedAt.Add(time.Hour)

	next, entry, err := applyOwnerChange(r, OwnerChange{RequesterUUID: alice, NewOwnerUUID: bob, NewOwnerName: "Bob", Note: "sold"}, "entry-1", now)
	require.NoError(t, err)

	assert.Equal(t, bob, next.CurrentOwnerUUID)
	assert.Equal(t, alice, next.PrevOwnerUUID)
	assert.Equal(t, StatusActive, next.Status)
	assert.Equal(t, now, next.LastOwnershipChangeDate)
	require.Len(t, next.OwnershipHistory, 1)
	assert.Equal(t, OwnershipRecord{OwnerUUID: bob, PrevOwnerUUID: alice, ActionBy: alice, Note: "sold", ChangedAt: now}, next.OwnershipHistory[0])
	assert.Empty(t, r.OwnershipHistory, "input must not be modified")

	assert.Equal(t, "entry-1", entry.ID)
	assert.Equal(t, alice, entry.UUID)
	assert.Equal(t, StatusReleased, entry.Status)
	assert.Equal(t, "under review", entry.StatusChangeDetail)
	assert.Equal(t, r.LastOwnershipChangeDate, entry.LastOwnershipChangeDate)
	assert.Equal(t, now, entry.ReleasedDate)
	assert.Equal(t, bob, entry.NewOwnerUUID)
	assert.Equal(t, "Bob", entry.NewOwnerName)

	_, _, err = applyOwnerChange(r, OwnerChange{RequesterUUID: bob, NewOwnerUUID: bob}, "x", now)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, _, err = applyOwnerChange(r, OwnerChange{RequesterUUID: alice, NewOwnerUUID: alice}, "x", now)
	assert.ErrorIs(t, err, ErrSameOwner)
}

func TestApplyStatus(t *testing.T) {
	alice := uuid.NewString()
	r := newResource(alice)
	now := r.CreatedAt.Add(time.Minute)

	next, err := applyStatus(r, StatusUpdate{RequesterUUID: alice, Status: StatusBlocked, Reason: "reported stolen"}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, next.Status)
	assert.Equal(t, "reported stolen", next.StatusChangeDetail)
	require.Len(t, next.StatusChangeHistory, 1)
	assert.Equal(t, StatusActive, next.StatusChangeHistory[0].From)
	assert.Equal(t, StatusBlocked, next.StatusChangeHistory[0].To)

	_, err = applyStatus(r, StatusUpdate{RequesterUUID: alice, Status: StatusReleased}, now)
	assert.ErrorIs(t, err, ErrStatusNotAllowed)
	_, err = applyStatus(r, StatusUpdate{RequesterUUID: uuid.NewString(), Status: StatusAvailable}, now)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestMemoryRegistryLookupAndDuplicates(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	alice := uuid.NewString()
	r := newResource(alice)
	require.NoError(t, reg.Create(ctx, r))

	for _, id := range []string{r.RUID, r.Code, r.IdentityNumber} {
		got, err := reg.Get(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, r.RUID, got.RUID)
	}
	_, err := reg.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	dup := newResource(alice)
	dup.IdentityNumber = r.IdentityNumber
	assert.ErrorIs(t, reg.Create(ctx, dup), ErrDuplicate)

	owned, err := reg.ListByOwner(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestMemoryRegistryChangeOwnerWritesLog(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	alice, bob, carol := uuid.NewString(), uuid.NewString(), uuid.NewString()
	r := newResource(alice)
	require.NoError(t, reg.Create(ctx, r))

	_, first, err := reg.ChangeOwner(ctx, OwnerChange{ResourceID: r.Code, RequesterUUID: alice, NewOwnerUUID: bob, NewOwnerName: "Bob"})
	require.NoError(t, err)
	updated, second, err := reg.ChangeOwner(ctx, OwnerChange{ResourceID: r.RUID, RequesterUUID: bob, NewOwnerUUID: carol, NewOwnerName: "Carol"})
	require.NoError(t, err)

	assert.Equal(t, carol, updated.CurrentOwnerUUID)
	assert.Equal(t, bob, updated.PrevOwnerUUID)
	assert.Len(t, updated.OwnershipHistory, 2)

	aliceLog, err := reg.LogByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceLog, 1)
	assert.Equal(t, first.ID, aliceLog[0].ID)

	bobLog, err := reg.LogByOwner(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobLog, 1)
	assert.Equal(t, second.ID, bobLog[0].ID)
	assert.Equal(t, carol, bobLog[0].NewOwnerUUID)

	_, _, err = reg.ChangeOwner(ctx, OwnerChange{ResourceID: r.RUID, RequesterUUID: alice, NewOwnerUUID: alice})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestMemoryRegistryConcurrentTransfersKeepSingleOwner(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	alice := uuid.NewString()
	r := newResource(alice)
	require.NoError(t, reg.Create(ctx, r))

	const contenders = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notOwner  int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := reg.ChangeOwner(ctx, OwnerChange{ResourceID: r.RUID, RequesterUUID: alice, NewOwnerUUID: uuid.NewString()})
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				successes++
			case ErrNotOwner:
				notOwner++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, contenders-1, notOwner)

	log, err := reg.LogByOwner(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, log, 1)

	got, err := reg.Get(ctx, r.RUID)
	require.NoError(t, err)
	assert.Len(t, got.OwnershipHistory, 1)
	assert.Equal(t, log[0].NewOwnerUUID, got.CurrentOwnerUUID)
}

func TestMemoryRegistrySetStatus(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	alice := uuid.NewString()
	r := newResource(alice)
	require.NoError(t, reg.Create(ctx, r))

	updated, err := reg.SetStatus(ctx, StatusUpdate{ResourceID: r.IdentityNumber, RequesterUUID: alice, Status: StatusUnavailable, Reason: "in repair"})
	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, updated.Status)

	_, err = reg.SetStatus(ctx, StatusUpdate{ResourceID: r.RUID, RequesterUUID: alice, Status: StatusReleased})
	assert.ErrorIs(t, err, ErrStatusNotAllowed)

	got, err := reg.Get(ctx, r.RUID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, got.Status)
	assert.Len(t, got.StatusChangeHistory, 1)
}
