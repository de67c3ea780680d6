package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is a bounded or unbounded period during which the blocklist is enforced
// on the targeted devices.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"userId"`
	Active        bool          `json:"isActive"`
	StartedAt     time.Time     `json:"startTime"`
	EndsAt        *time.Time    `json:"endTime"` // nil means the session stays active until stopped.
	TargetDevices TargetDevices `json:"targetDevices"`
	Blocklist     Blocklist     `json:"blocklists"`
	Whitelist     Whitelist     `json:"whitelists"`
}

// Expired reports whether an active session has passed its end time.
func (s *Session) Expired(now time.Time) bool {
	return s.Active && s.EndsAt != nil && !now.Before(*s.EndsAt)
}

// End marks the session inactive as of at.
func (s *Session) End(at time.Time) {
	s.Active = false
	if s.EndsAt == nil || at.Before(*s.EndsAt) {
		end := at
		s.EndsAt = &end
	}
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.EndsAt != nil {
		end := *s.EndsAt
		out.EndsAt = &end
	}
	out.TargetDevices = s.TargetDevices.clone()
	out.Blocklist = Blocklist{
		Apps:     append([]string{}, s.Blocklist.Apps...),
		Sites:    append([]string{}, s.Blocklist.Sites...),
		Keywords: append([]string{}, s.Blocklist.Keywords...),
	}
	out.Whitelist = Whitelist{
		Apps:  append([]string{}, s.Whitelist.Apps...),
		Sites: append([]string{}, s.Whitelist.Sites...),
	}

	return &out
}
