package impl

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"focusguard/config"
	"focusguard/internal/infra/persistence/memory"
	"focusguard/internal/usecase"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{BcryptCost: 4},
	}
	cfg.Blocker.SelfIdentifier = config.DefaultSelfIdentifier
	cfg.Devices.OfflineAfter = 2 * time.Minute

	return cfg
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// sessionFixtures wires the session and config services over one memory store.
type sessionFixtures struct {
	store    *memory.Store
	clock    *fakeClock
	sessions *sessionService
	configs  usecase.ConfigUsecase
}

func newSessionFixtures() *sessionFixtures {
	cfg := newTestConfig()
	logger := newDiscardLogger()
	store := memory.NewStore()
	clock := newFakeClock()

	sessions := NewSessionService(SessionServiceParams{
		TxManager:   store.TxManager(),
		UserRepo:    store.Users(),
		DeviceRepo:  store.Devices(),
		SessionRepo: store.Sessions(),
		Config:      cfg,
		Logger:      logger,
	}).(*sessionService)
	sessions.now = clock.Now

	configs := NewConfigService(ConfigServiceParams{
		UserRepo: store.Users(),
		Sessions: sessions,
		Config:   cfg,
		Logger:   logger,
	})

	return &sessionFixtures{
		store:    store,
		clock:    clock,
		sessions: sessions,
		configs:  configs,
	}
}
