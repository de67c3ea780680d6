package matcher

import (
	"time"

	"focusguard/internal/domain/entity"

	mapset "github.com/deckarep/golang-set/v2"
)

// Snapshot is the immutable view of a session the engine decides against.
// Build it with NewSnapshot or Inactive; it is never modified after construction.
type Snapshot struct {
	Active    bool
	SessionID string
	EndsAt    *time.Time
	FetchedAt time.Time

	blocklist  entity.Blocklist
	whitelist  entity.Whitelist
	blockApps  mapset.Set[string]
	whiteApps  mapset.Set[string]
	blockBases []string
}

// Inactive returns a snapshot that allows everything.
func Inactive() *Snapshot {
	return NewSnapshot(false, "", nil, entity.Blocklist{}, entity.Whitelist{}, time.Time{})
}

// NewSnapshot normalizes the lists and precomputes the lookup sets.
func NewSnapshot(active bool, sessionID string, endsAt *time.Time, block entity.Blocklist, white entity.Whitelist, fetchedAt time.Time) *Snapshot {
	block = block.Normalized()
	white = white.Normalized("")

	var ends *time.Time
	if endsAt != nil {
		t := *endsAt
		ends = &t
	}

	bases := make([]string, len(block.Sites))
	for i, site := range block.Sites {
		bases[i] = registrableName(site)
	}

	return &Snapshot{
		Active:     active,
		SessionID:  sessionID,
		EndsAt:     ends,
		FetchedAt:  fetchedAt,
		blocklist:  block,
		whitelist:  white,
		blockApps:  mapset.NewThreadUnsafeSet(block.Apps...),
		whiteApps:  mapset.NewThreadUnsafeSet(white.Apps...),
		blockBases: bases,
	}
}

// ActiveAt reports whether the snapshot enforces blocking at now.
// A cached end time that has passed counts as inactive even before the next poll.
func (s *Snapshot) ActiveAt(now time.Time) bool {
	if s == nil || !s.Active {
		return false
	}

	return s.EndsAt == nil || now.Before(*s.EndsAt)
}

// Blocklist returns the normalized blocklist.
func (s *Snapshot) Blocklist() entity.Blocklist {
	return s.blocklist
}

// Whitelist returns the normalized whitelist.
func (s *Snapshot) Whitelist() entity.Whitelist {
	return s.whitelist
}
