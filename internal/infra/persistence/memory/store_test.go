package memory

import (
	"context"
	"testing"
	"time"

	"focusguard/internal/domain/entity"
	"focusguard/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Users(t *testing.T) {
	store := NewStore()
	repo := store.Users()
	ctx := context.Background()

	user := &entity.User{Email: "a@example.com", Blocklist: entity.Blocklist{Apps: []string{"com.a"}}}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	assert.ErrorIs(t, repo.Create(ctx, &entity.User{Email: "a@example.com"}), repository.ErrDuplicateEmail)

	found, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	found.Blocklist.Apps[0] = "mutated"

	again, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.a"}, again.Blocklist.Apps, "callers receive copies")

	require.NoError(t, repo.UpdateLists(ctx, user.ID, entity.Blocklist{Sites: []string{"x.com"}}, entity.Whitelist{}))
	again, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.com"}, again.Blocklist.Sites)
	assert.Empty(t, again.Blocklist.Apps)

	assert.ErrorIs(t, repo.UpdateLists(ctx, uuid.New(), entity.Blocklist{}, entity.Whitelist{}), repository.ErrUserNotFound)
	_, err = repo.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestStore_DevicesKeepRegistrationOrder(t *testing.T) {
	store := NewStore()
	repo := store.Devices()
	ctx := context.Background()
	owner := uuid.New()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Upsert(ctx, &entity.Device{ID: id, UserID: owner}))
	}
	require.NoError(t, repo.Upsert(ctx, &entity.Device{ID: "c", UserID: owner, Name: "renamed"}))

	devices, err := repo.FindByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "c", devices[0].ID)
	assert.Equal(t, "renamed", devices[0].Name)
	assert.Equal(t, "a", devices[1].ID)
	assert.Equal(t, "b", devices[2].ID)

	seenAt := time.Now()
	require.NoError(t, repo.Touch(ctx, "a", seenAt))
	device, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, device.Online)
	assert.Equal(t, seenAt, device.LastSeen)

	assert.ErrorIs(t, repo.Touch(ctx, "zzz", seenAt), repository.ErrDeviceNotFound)
}

func TestStore_SessionsRejectSecondActive(t *testing.T) {
	store := NewStore()
	repo := store.Sessions()
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	first := &entity.Session{UserID: userID, Active: true, StartedAt: now, TargetDevices: entity.AllDevices()}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &entity.Session{UserID: userID, Active: true, StartedAt: now})
	assert.ErrorIs(t, err, repository.ErrActiveSessionExists)

	require.NoError(t, repo.End(ctx, first.ID, now))
	require.NoError(t, repo.Create(ctx, &entity.Session{UserID: userID, Active: true, StartedAt: now.Add(time.Second)}))

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.ErrorIs(t, repo.End(ctx, uuid.New(), now), repository.ErrSessionNotFound)
}
