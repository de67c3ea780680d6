package repository

import (
	"context"
	"time"

	"focusguard/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrDeviceNotFound is returned when a device is not found.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceRepository defines the interface for device-related database operations.
type DeviceRepository interface {
	// Upsert creates the device or overwrites every field of the existing record with the same ID.
	Upsert(ctx context.Context, device *entity.Device) error

	// FindByID retrieves a device by its client-generated ID.
	FindByID(ctx context.Context, id string) (*entity.Device, error)

	// FindByUser retrieves all devices owned by a user.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error)

	// Touch marks a device online and sets its last-seen time.
	Touch(ctx context.Context, id string, seenAt time.Time) error

	// Count returns the number of registered devices.
	Count(ctx context.Context) (int64, error)
}
