package usecase

import (
	"context"
	"time"

	"focusguard/internal/domain/entity"

	"github.com/google/uuid"
)

// StartSessionInput describes a new focus session. A nil override falls back to the
// user's stored list for that dimension.
type StartSessionInput struct {
	Target           entity.TargetDevices
	OverrideWebsites []string
	OverridePackages []string
	OverrideKeywords []string
	Duration         time.Duration // Zero means no end time.
}

// Stats summarises the stored state for health reporting.
type Stats struct {
	Users          int64 `json:"users"`
	Devices        int64 `json:"devices"`
	ActiveSessions int64 `json:"activeSessions"`
}

// SessionUsecase defines the focus session state machine.
type SessionUsecase interface {
	// Start supersedes any active session of the user and starts a new one.
	Start(ctx context.Context, userID uuid.UUID, input *StartSessionInput) (*entity.Session, error)

	// Stop ends the given session, or every active session of the user when sessionID is nil.
	Stop(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID) error

	// GetActiveFor returns the active session targeting deviceID, or nil.
	GetActiveFor(ctx context.Context, userID uuid.UUID, deviceID string) (*entity.Session, error)

	// SyncConfig overwrites the lists of the user's active session, if any.
	SyncConfig(ctx context.Context, userID uuid.UUID, block entity.Blocklist, white entity.Whitelist) error

	// Stats counts users, devices and active sessions.
	Stats(ctx context.Context) (*Stats, error)
}
