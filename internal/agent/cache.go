package agent

import (
	"context"
	"sync"
	"sync/atomic"

	"focusguard/internal/matcher"
)

// Cache holds the current session snapshot. Reads are a single atomic load, so a decision
// always sees one whole snapshot. Writers are serialised so Clear cannot be overtaken by a
// poll that was already in flight.
type Cache struct {
	mu      sync.Mutex
	current atomic.Pointer[matcher.Snapshot]
}

// NewCache returns a cache holding the inactive snapshot.
func NewCache() *Cache {
	c := &Cache{}
	c.current.Store(matcher.Inactive())

	return c
}

// Load returns the current snapshot. It never returns nil.
func (c *Cache) Load() *matcher.Snapshot {
	return c.current.Load()
}

// Store swaps in snap unless ctx is already done. It reports whether the swap happened.
func (c *Cache) Store(ctx context.Context, snap *matcher.Snapshot) bool {
	if snap == nil {
		snap = matcher.Inactive()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	c.current.Store(snap)

	return true
}

// Clear replaces the snapshot with the inactive one.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current.Store(matcher.Inactive())
}
