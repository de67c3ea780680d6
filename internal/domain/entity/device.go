package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceKind classifies a device by its form factor.
type DeviceKind string

const (
	DeviceKindMobile  DeviceKind = "mobile"
	DeviceKindDesktop DeviceKind = "desktop"
)

// DefaultPlatform is used when a device registers without a platform.
const DefaultPlatform = "unknown"

// ParseDeviceKind accepts "mobile", "desktop" and the legacy "android" value.
func ParseDeviceKind(raw string) (DeviceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mobile", "android":
		return DeviceKindMobile, true
	case "desktop":
		return DeviceKindDesktop, true
	default:
		return "", false
	}
}

// Device is a physical or virtual endpoint running the blocker agent.
type Device struct {
	ID       string     `json:"deviceId"`   // Client-generated identifier, stable for the device.
	UserID   uuid.UUID  `json:"userId"`     // The ID of the user who currently owns this device.
	Name     string     `json:"deviceName"` // Human readable name.
	Kind     DeviceKind `json:"deviceType"` // mobile or desktop.
	Platform string     `json:"platform"`   // Free-form platform label (android, windows, macos).
	Online   bool       `json:"isOnline"`   // Set on every registration or heartbeat.
	LastSeen time.Time  `json:"lastSeen"`   // Time of the last registration or heartbeat.
}

// SeenWithin reports whether the device has checked in within window of now.
func (d *Device) SeenWithin(now time.Time, window time.Duration) bool {
	if window <= 0 {
		return d.Online
	}

	return d.Online && now.Sub(d.LastSeen) <= window
}
