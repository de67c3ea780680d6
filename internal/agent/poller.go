package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"focusguard/internal/domain/entity"
	"focusguard/internal/errors"
	"focusguard/internal/matcher"
	"focusguard/internal/util"
)

// SessionSource fetches the active session of a device.
type SessionSource interface {
	ActiveSession(ctx context.Context, deviceID string) (*Session, error)
}

// Poller refreshes the cache from the server at a fixed interval.
type Poller struct {
	source       SessionSource
	cache        *Cache
	deviceID     string
	interval     time.Duration
	timeout      time.Duration
	maxStaleness time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu          sync.Mutex
	lastSuccess time.Time
}

// PollerOptions configures a Poller. A zero MaxStaleness never clears the cache on failures.
type PollerOptions struct {
	DeviceID     string
	Interval     time.Duration
	Timeout      time.Duration
	MaxStaleness time.Duration
}

// NewPoller creates a poller writing into cache.
func NewPoller(source SessionSource, cache *Cache, opts PollerOptions, logger *slog.Logger) *Poller {
	return &Poller{
		source:       source,
		cache:        cache,
		deviceID:     opts.DeviceID,
		interval:     opts.Interval,
		timeout:      opts.Timeout,
		maxStaleness: opts.MaxStaleness,
		logger:       logger,
		now:          time.Now,
	}
}

// Run polls once immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	p.lastSuccess = p.now()
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Debug("Session poll failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce performs a single poll. Transport failures keep the cached snapshot until it is
// older than the staleness limit. Any answer from the server replaces it.
func (p *Poller) PollOnce(ctx context.Context) error {
	pollCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	session, err := p.source.ActiveSession(pollCtx, p.deviceID)
	if err != nil {
		if errors.IsAny(err, ErrTransport, context.DeadlineExceeded) {
			p.expireIfStale()

			return err
		}

		// The server answered: there is nothing this device may enforce.
		p.logger.Warn("Session poll rejected, clearing cache", slog.Any("error", err))
		p.markSuccess()
		p.cache.Store(ctx, matcher.Inactive())

		return err
	}

	p.markSuccess()
	snap := toSnapshot(session, p.now())
	if p.cache.Store(ctx, snap) && snap.Active {
		p.logger.Debug("Session snapshot updated",
			slog.String("sessionID", snap.SessionID),
			slog.String("remaining", util.FormatRemaining(snap.EndsAt, p.now())),
		)
	}

	return nil
}

func (p *Poller) markSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastSuccess = p.now()
}

func (p *Poller) expireIfStale() {
	if p.maxStaleness <= 0 {
		return
	}

	p.mu.Lock()
	stale := p.now().Sub(p.lastSuccess) >= p.maxStaleness
	p.mu.Unlock()

	if stale && p.cache.Load().Active {
		p.logger.Warn("No successful poll within staleness limit, clearing cache",
			slog.Duration("maxStaleness", p.maxStaleness),
		)
		p.cache.Clear()
	}
}

func toSnapshot(session *Session, fetchedAt time.Time) *matcher.Snapshot {
	if session == nil {
		return matcher.Inactive()
	}

	return matcher.NewSnapshot(
		session.IsActive,
		session.ID,
		session.EndTime,
		entity.Blocklist{
			Apps:     session.BlockedPackages,
			Sites:    session.BlockedWebsites,
			Keywords: session.BlockedKeywords,
		},
		entity.Whitelist{
			Apps:  session.WhitelistedPackages,
			Sites: session.WhitelistedWebsites,
		},
		fetchedAt,
	)
}
