package postgres

import (
	"context"
	"testing"
	"time"

	"focusguard/internal/domain/entity"
	"focusguard/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func createUser(t *testing.T, repo repository.UserRepository, email string) *entity.User {
	t.Helper()

	user := &entity.User{
		Email:        email,
		Name:         "Focus",
		PasswordHash: "hash",
		Blocklist:    entity.Blocklist{Sites: []string{"facebook.com"}},
		Whitelist:    entity.Whitelist{Apps: []string{"com.focusapp.blocker"}},
	}
	require.NoError(t, repo.Create(context.Background(), user))

	return user
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createUser(t, repo, "a@example.com")
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	found, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, []string{"facebook.com"}, found.Blocklist.Sites)
	assert.Equal(t, []string{}, found.Blocklist.Apps)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	err = repo.Create(ctx, &entity.User{Email: "a@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_UpdateLists(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := createUser(t, repo, "b@example.com")

	err := repo.UpdateLists(ctx, user.ID,
		entity.Blocklist{Apps: []string{"com.a"}, Keywords: []string{"casino"}},
		entity.Whitelist{Sites: []string{"docs.google.com"}},
	)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.a"}, found.Blocklist.Apps)
	assert.Equal(t, []string{}, found.Blocklist.Sites)
	assert.Equal(t, []string{"casino"}, found.Blocklist.Keywords)
	assert.Equal(t, []string{"docs.google.com"}, found.Whitelist.Sites)

	err = repo.UpdateLists(ctx, uuid.New(), entity.Blocklist{}, entity.Whitelist{})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestDeviceRepository_UpsertReassignsOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	seen := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	device := &entity.Device{ID: "phone-1", UserID: alice, Name: "Pixel", Kind: entity.DeviceKindMobile, Platform: "android", Online: true, LastSeen: seen}
	require.NoError(t, repo.Upsert(ctx, device))
	require.NoError(t, repo.Upsert(ctx, &entity.Device{ID: "laptop", UserID: alice, Name: "Work", Kind: entity.DeviceKindDesktop, Platform: "linux", LastSeen: seen}))

	moved := *device
	moved.UserID = bob
	moved.Name = "Pixel 9"
	require.NoError(t, repo.Upsert(ctx, &moved))

	found, err := repo.FindByID(ctx, "phone-1")
	require.NoError(t, err)
	assert.Equal(t, bob, found.UserID)
	assert.Equal(t, "Pixel 9", found.Name)
	assert.Equal(t, entity.DeviceKindMobile, found.Kind)

	owned, err := repo.FindByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "laptop", owned[0].ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "an upsert never duplicates a device")
}

func TestDeviceRepository_Touch(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &entity.Device{ID: "d1", UserID: uuid.New(), Name: "d1", Kind: entity.DeviceKindMobile, Platform: "android"}))

	seenAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Touch(ctx, "d1", seenAt))

	found, err := repo.FindByID(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, found.Online)
	assert.True(t, seenAt.Equal(found.LastSeen))

	assert.ErrorIs(t, repo.Touch(ctx, "missing", seenAt), repository.ErrDeviceNotFound)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrDeviceNotFound)
}

func newSession(userID uuid.UUID, started time.Time, target entity.TargetDevices) *entity.Session {
	return &entity.Session{
		UserID:        userID,
		Active:        true,
		StartedAt:     started,
		TargetDevices: target,
		Blocklist:     entity.Blocklist{Apps: []string{"com.a"}},
		Whitelist:     entity.Whitelist{Apps: []string{"com.focusapp.blocker"}},
	}
}

func TestSessionRepository_OneActivePerUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := newSession(userID, now, entity.SpecificDevices("d1", "d2"))
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newSession(userID, now.Add(time.Minute), entity.AllDevices()))
	assert.ErrorIs(t, err, repository.ErrActiveSessionExists)

	require.NoError(t, repo.Create(ctx, newSession(uuid.New(), now, entity.AllDevices())), "other users are unaffected")

	require.NoError(t, repo.End(ctx, first.ID, now.Add(time.Minute)))
	second := newSession(userID, now.Add(time.Minute), entity.AllDevices())
	require.NoError(t, repo.Create(ctx, second), "ending the session frees the slot")

	active, err := repo.FindActiveByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.True(t, active[0].TargetDevices.IsAll())

	ended, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, ended.Active)
	require.NotNil(t, ended.EndsAt)
	assert.True(t, now.Add(time.Minute).Equal(*ended.EndsAt))
	assert.Equal(t, []string{"d1", "d2"}, ended.TargetDevices.DeviceIDs())

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSessionRepository_UpdateListsAndMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := newSession(uuid.New(), time.Now().UTC(), entity.AllDevices())
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.UpdateLists(ctx, session.ID,
		entity.Blocklist{Sites: []string{"youtube.com"}},
		entity.Whitelist{Apps: []string{"com.focusapp.blocker"}},
	))

	found, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"youtube.com"}, found.Blocklist.Sites)
	assert.Equal(t, []string{}, found.Blocklist.Apps)

	missing := uuid.New()
	assert.ErrorIs(t, repo.End(ctx, missing, time.Now()), repository.ErrSessionNotFound)
	assert.ErrorIs(t, repo.UpdateLists(ctx, missing, entity.Blocklist{}, entity.Whitelist{}), repository.ErrSessionNotFound)
	_, err = repo.FindByID(ctx, missing)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	ctx := context.Background()
	userID := uuid.New()
	boom := errors.New("boom")

	err := tm.Execute(ctx, func(factory repository.RepositoryFactory) error {
		if err := factory.NewSessionRepository().Create(ctx, newSession(userID, time.Now().UTC(), entity.AllDevices())); err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)

	active, err := NewSessionRepository(db).FindActiveByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, active)

	err = tm.Execute(ctx, func(factory repository.RepositoryFactory) error {
		return factory.NewSessionRepository().Create(ctx, newSession(userID, time.Now().UTC(), entity.AllDevices()))
	})
	require.NoError(t, err)

	active, err = NewSessionRepository(db).FindActiveByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
