package repository

import (
	"context"
	"time"

	"focusguard/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrActiveSessionExists is returned when a second active session would be stored for a user.
	ErrActiveSessionExists = errors.New("user already has an active session")
)

// SessionRepository defines the persistence operations for focus sessions.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *entity.Session) error

	// FindByID retrieves a session by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)

	// FindActiveByUser retrieves every session of the user still flagged active,
	// regardless of its end time.
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error)

	// End flags the session inactive and sets its end time.
	End(ctx context.Context, id uuid.UUID, endedAt time.Time) error

	// UpdateLists overwrites the session's snapshot lists.
	UpdateLists(ctx context.Context, id uuid.UUID, block entity.Blocklist, white entity.Whitelist) error

	// CountActive returns the number of sessions flagged active.
	CountActive(ctx context.Context) (int64, error)
}
