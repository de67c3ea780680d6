package service

import (
	"context"
	"time"
)

// SessionEventType names a session lifecycle transition.
type SessionEventType string

const (
	SessionStarted      SessionEventType = "session.started"
	SessionSuperseded   SessionEventType = "session.superseded"
	SessionStopped      SessionEventType = "session.stopped"
	SessionExpired      SessionEventType = "session.expired"
	SessionConfigSynced SessionEventType = "session.config_synced"
)

// SessionEvent describes a session state change for downstream consumers.
type SessionEvent struct {
	RequestID     string           `json:"request_id,omitempty"` // For distributed tracing
	Type          SessionEventType `json:"type"`
	SessionID     string           `json:"session_id"`
	UserID        string           `json:"user_id"`
	TargetDevices []string         `json:"target_devices,omitempty"` // Empty means all devices
	OccurredAt    time.Time        `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishSessionEvent publishes a session lifecycle event
	PublishSessionEvent(ctx context.Context, event *SessionEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
