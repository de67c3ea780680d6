package usecase

import (
	"context"

	"focusguard/internal/domain/entity"

	"github.com/google/uuid"
)

// RegisterDeviceInput represents device information for registration
type RegisterDeviceInput struct {
	DeviceID string
	Name     string
	Kind     string
	Platform string
}

// DeviceUsecase defines the interface for the device registry
type DeviceUsecase interface {
	// Register creates or refreshes a device and assigns it to the caller
	Register(ctx context.Context, userID uuid.UUID, input *RegisterDeviceInput) (*entity.Device, error)

	// Heartbeat marks a device as recently seen
	Heartbeat(ctx context.Context, userID uuid.UUID, deviceID string) error

	// List retrieves all devices of a user with their derived online state
	List(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error)
}
