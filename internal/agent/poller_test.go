package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource answers polls from a queue of results; the last one repeats.
type scriptedSource struct {
	mu      sync.Mutex
	results []pollResult
	calls   int
}

type pollResult struct {
	session *Session
	err     error
}

func (s *scriptedSource) ActiveSession(_ context.Context, _ string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++

	return s.results[i].session, s.results[i].err
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func activeSession(packages ...string) *Session {
	return &Session{ID: "s1", IsActive: true, BlockedPackages: packages}
}

func newTestPoller(source SessionSource, maxStaleness time.Duration) (*Poller, *Cache, *time.Time) {
	cache := NewCache()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	poller := NewPoller(source, cache, PollerOptions{
		DeviceID:     "d1",
		Interval:     time.Hour,
		Timeout:      time.Second,
		MaxStaleness: maxStaleness,
	}, newDiscardLogger())
	poller.now = func() time.Time { return now }

	return poller, cache, &now
}

func TestPoller_SuccessReplacesCache(t *testing.T) {
	source := &scriptedSource{results: []pollResult{
		{session: activeSession("com.a")},
		{session: nil},
	}}
	poller, cache, _ := newTestPoller(source, 0)
	ctx := context.Background()

	assert.False(t, cache.Load().Active, "the cache starts inactive")

	require.NoError(t, poller.PollOnce(ctx))
	snap := cache.Load()
	assert.True(t, snap.Active)
	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, []string{"com.a"}, snap.Blocklist().Apps)

	require.NoError(t, poller.PollOnce(ctx))
	assert.False(t, cache.Load().Active, "no session means inactive")
}

func TestPoller_TransportFailureKeepsCache(t *testing.T) {
	source := &scriptedSource{results: []pollResult{
		{session: activeSession("com.a")},
		{err: errors.Wrap(ErrTransport, "connection refused")},
	}}
	poller, cache, _ := newTestPoller(source, 0)
	ctx := context.Background()

	require.NoError(t, poller.PollOnce(ctx))
	before := cache.Load()

	for range 3 {
		assert.ErrorIs(t, poller.PollOnce(ctx), ErrTransport)
	}
	assert.Same(t, before, cache.Load())
}

func TestPoller_StalenessClearsCache(t *testing.T) {
	source := &scriptedSource{results: []pollResult{
		{session: activeSession("com.a")},
		{err: errors.Wrap(ErrTransport, "timeout")},
	}}
	poller, cache, now := newTestPoller(source, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, poller.PollOnce(ctx))

	*now = now.Add(4 * time.Minute)
	require.Error(t, poller.PollOnce(ctx))
	assert.True(t, cache.Load().Active, "within the staleness limit the cache is kept")

	*now = now.Add(time.Minute)
	require.Error(t, poller.PollOnce(ctx))
	assert.False(t, cache.Load().Active)
}

func TestPoller_RejectionClearsCache(t *testing.T) {
	source := &scriptedSource{results: []pollResult{
		{session: activeSession("com.a")},
		{err: &APIError{Status: 401, Code: "INVALID_TOKEN", Message: "expired"}},
	}}
	poller, cache, _ := newTestPoller(source, 0)
	ctx := context.Background()

	require.NoError(t, poller.PollOnce(ctx))
	require.Error(t, poller.PollOnce(ctx))
	assert.False(t, cache.Load().Active)
}

func TestPoller_RunPollsImmediatelyAndStops(t *testing.T) {
	source := &scriptedSource{results: []pollResult{{session: activeSession("com.a")}}}
	poller, cache, _ := newTestPoller(source, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool { return cache.Load().Active }, time.Second, 5*time.Millisecond,
		"the first poll does not wait for the interval")
	assert.Equal(t, 1, source.callCount())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestCache_StoreAfterCancelIsDropped(t *testing.T) {
	cache := NewCache()
	ctx, cancel := context.WithCancel(context.Background())

	assert.True(t, cache.Store(ctx, toSnapshot(activeSession("com.a"), time.Now())))
	cancel()
	cache.Clear()

	assert.False(t, cache.Store(ctx, toSnapshot(activeSession("com.a"), time.Now())))
	assert.False(t, cache.Load().Active)
	assert.NotNil(t, NewCache().Load())
}
