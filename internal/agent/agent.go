package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"focusguard/config"
	"focusguard/internal/matcher"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotAuthenticated is returned by Run when no token is configured.
	ErrNotAuthenticated = errors.New("agent is not logged in")
	// ErrAlreadyRunning is returned by Run when the agent is already running.
	ErrAlreadyRunning = errors.New("agent is already running")
)

// Agent ties the client, the cache, the poller and the matching engine together.
type Agent struct {
	cfg    *config.AgentConfig
	client *Client
	cache  *Cache
	poller *Poller
	engine *matcher.Engine
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds an agent from its configuration.
func New(cfg *config.AgentConfig, logger *slog.Logger) *Agent {
	client := NewClient(cfg, logger)
	cache := NewCache()

	return &Agent{
		cfg:    cfg,
		client: client,
		cache:  cache,
		poller: NewPoller(client, cache, PollerOptions{
			DeviceID:     cfg.Device.ID,
			Interval:     cfg.Sync.PollInterval,
			Timeout:      cfg.Sync.RequestTimeout,
			MaxStaleness: cfg.Sync.MaxStaleness,
		}, logger),
		engine: matcher.New(cfg.Matcher, logger),
		logger: logger,
	}
}

// Client returns the server client used by the agent.
func (a *Agent) Client() *Client {
	return a.client
}

// Snapshot returns the cached session snapshot.
func (a *Agent) Snapshot() *matcher.Snapshot {
	return a.cache.Load()
}

// Login authenticates against the server and keeps the token for Run.
func (a *Agent) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return a.client.Login(ctx, email, password)
}

// Run registers the device, then polls the session and sends heartbeats until ctx is
// done or Logout is called. Without a token nothing is polled and the cache stays inactive.
func (a *Agent) Run(ctx context.Context) error {
	if a.client.Token() == "" {
		a.cache.Clear()

		return errors.WithStack(ErrNotAuthenticated)
	}

	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()

		return errors.WithStack(ErrAlreadyRunning)
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
		cancel()
	}()

	a.registerDevice(runCtx)

	a.logger.Info("Agent started",
		slog.String("deviceID", a.cfg.Device.ID),
		slog.Duration("pollInterval", a.cfg.Sync.PollInterval),
	)

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return a.poller.Run(groupCtx)
	})
	group.Go(func() error {
		return a.heartbeat(groupCtx)
	})

	err := group.Wait()
	a.logger.Info("Agent stopped", slog.String("deviceID", a.cfg.Device.ID))

	return err
}

// Sync polls the session once, for callers that decide without running the agent.
func (a *Agent) Sync(ctx context.Context) error {
	if a.client.Token() == "" {
		a.cache.Clear()

		return errors.WithStack(ErrNotAuthenticated)
	}

	return a.poller.PollOnce(ctx)
}

// Logout stops polling, forgets the token and clears the cache before returning.
func (a *Agent) Logout() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	a.client.SetToken("")
	a.cache.Clear()
	a.logger.Info("Agent logged out")
}

// Decide answers a blocking decision from the cached snapshot.
func (a *Agent) Decide(obs matcher.Observation) matcher.Decision {
	decision := a.engine.Decide(obs, a.cache.Load())
	if decision.Blocked() {
		a.logger.Info("Blocking",
			slog.String("identifier", obs.Identifier),
			slog.String("reason", decision.Reason),
			slog.String("match", decision.Match),
		)
	}

	return decision
}

func (a *Agent) registerDevice(ctx context.Context) {
	regCtx, cancel := context.WithTimeout(ctx, a.cfg.Sync.RequestTimeout)
	defer cancel()

	_, err := a.client.RegisterDevice(regCtx, Device{
		ID:       a.cfg.Device.ID,
		Name:     a.cfg.Device.Name,
		Kind:     a.cfg.Device.Kind,
		Platform: a.cfg.Device.Platform,
	})
	if err != nil {
		a.logger.Warn("Device registration failed", slog.String("deviceID", a.cfg.Device.ID), slog.Any("error", err))

		return
	}

	a.logger.Debug("Device registered", slog.String("deviceID", a.cfg.Device.ID))
}

func (a *Agent) heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Sync.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			beatCtx, cancel := context.WithTimeout(ctx, a.cfg.Sync.RequestTimeout)
			err := a.client.Heartbeat(beatCtx, a.cfg.Device.ID)
			cancel()
			if err != nil && ctx.Err() == nil {
				a.logger.Debug("Heartbeat failed", slog.Any("error", err))
			}
		}
	}
}
