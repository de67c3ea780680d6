package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"focusguard/config"
	deliverycontext "focusguard/internal/delivery/context"
	"focusguard/internal/domain/entity"
	domainerrors "focusguard/internal/domain/errors"
	"focusguard/internal/domain/repository"
	"focusguard/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type deviceService struct {
	deviceRepo   repository.DeviceRepository
	offlineAfter time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// DeviceServiceParams holds dependencies for DeviceService, injected by Fx.
type DeviceServiceParams struct {
	fx.In

	DeviceRepo repository.DeviceRepository
	Config     *config.Config
	Logger     *slog.Logger
}

// NewDeviceService creates a new device service instance
func NewDeviceService(params DeviceServiceParams) usecase.DeviceUsecase {
	var offlineAfter time.Duration
	if params.Config != nil {
		offlineAfter = params.Config.Devices.OfflineAfter
	}

	return &deviceService{
		deviceRepo:   params.DeviceRepo,
		offlineAfter: offlineAfter,
		logger:       params.Logger,
		now:          time.Now,
	}
}

func (s *deviceService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.logger)
}

// Register creates the device or refreshes it, moving ownership to userID
func (s *deviceService) Register(ctx context.Context, userID uuid.UUID, input *usecase.RegisterDeviceInput) (*entity.Device, error) {
	if input == nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("device information is required"))
	}

	deviceID := strings.TrimSpace(input.DeviceID)
	name := strings.TrimSpace(input.Name)
	if deviceID == "" || name == "" || strings.TrimSpace(input.Kind) == "" {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("deviceId, deviceName and deviceType are required"))
	}

	kind, ok := entity.ParseDeviceKind(input.Kind)
	if !ok {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("deviceType must be mobile or desktop"))
	}

	platform := strings.TrimSpace(input.Platform)
	if platform == "" {
		platform = entity.DefaultPlatform
	}

	existing, err := s.deviceRepo.FindByID(ctx, deviceID)
	switch {
	case err == nil && existing.UserID != userID:
		s.log(ctx).Warn("Device ownership reassigned",
			slog.String("deviceID", deviceID),
			slog.Any("previousUserID", existing.UserID),
			slog.Any("userID", userID),
		)
	case err != nil && !errors.Is(err, repository.ErrDeviceNotFound):
		return nil, errors.Wrap(err, "failed to find device by ID")
	}

	device := &entity.Device{
		ID:       deviceID,
		UserID:   userID,
		Name:     name,
		Kind:     kind,
		Platform: platform,
		Online:   true,
		LastSeen: s.now(),
	}

	if err := s.deviceRepo.Upsert(ctx, device); err != nil {
		return nil, errors.Wrap(err, "failed to upsert device")
	}

	s.log(ctx).Info("Device registered", slog.String("deviceID", deviceID), slog.String("kind", string(kind)), slog.Any("userID", userID))

	return device, nil
}

// Heartbeat refreshes the last-seen time of a device owned by userID.
// An unknown device is ignored.
func (s *deviceService) Heartbeat(ctx context.Context, userID uuid.UUID, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("deviceId is required"))
	}

	device, err := s.deviceRepo.FindByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil
		}

		return errors.Wrap(err, "failed to find device by ID")
	}

	// Verify ownership
	if device.UserID != userID {
		return errors.WithStack(domainerrors.ErrDeviceForbidden)
	}

	if err := s.deviceRepo.Touch(ctx, deviceID, s.now()); err != nil {
		return errors.Wrap(err, "failed to touch device")
	}

	return nil
}

// List retrieves all devices of a user. Devices silent for longer than the
// configured window are reported offline.
func (s *deviceService) List(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error) {
	devices, err := s.deviceRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find devices by user")
	}

	now := s.now()
	for _, device := range devices {
		device.Online = device.SeenWithin(now, s.offlineAfter)
	}

	return devices, nil
}
