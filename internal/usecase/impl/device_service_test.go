package impl

import (
	"context"
	"testing"
	"time"

	"focusguard/internal/domain/entity"
	domainerrors "focusguard/internal/domain/errors"
	"focusguard/internal/domain/repository"
	mockRepo "focusguard/internal/mocks/repository"
	"focusguard/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// deviceServiceFixtures holds all test dependencies for device service tests.
type deviceServiceFixtures struct {
	service    usecase.DeviceUsecase
	deviceRepo *mockRepo.MockDeviceRepository
	clock      *fakeClock
}

func createTestDeviceService(t *testing.T) deviceServiceFixtures {
	deviceRepo := mockRepo.NewMockDeviceRepository(t)
	clock := newFakeClock()

	service := NewDeviceService(DeviceServiceParams{
		DeviceRepo: deviceRepo,
		Config:     newTestConfig(),
		Logger:     newDiscardLogger(),
	}).(*deviceService)
	service.now = clock.Now

	return deviceServiceFixtures{
		service:    service,
		deviceRepo: deviceRepo,
		clock:      clock,
	}
}

func TestDeviceService_Register_NewDevice(t *testing.T) {
	fx := createTestDeviceService(t)

	ctx := context.Background()
	userID := uuid.New()

	fx.deviceRepo.EXPECT().
		FindByID(ctx, "pixel-1").
		Return(nil, repository.ErrDeviceNotFound)

	fx.deviceRepo.EXPECT().
		Upsert(ctx, mock.AnythingOfType("*entity.Device")).
		Return(nil)

	device, err := fx.service.Register(ctx, userID, &usecase.RegisterDeviceInput{
		DeviceID: " pixel-1 ",
		Name:     "Pixel",
		Kind:     "android",
	})
	require.NoError(t, err)
	assert.Equal(t, "pixel-1", device.ID)
	assert.Equal(t, userID, device.UserID)
	assert.Equal(t, entity.DeviceKindMobile, device.Kind)
	assert.Equal(t, entity.DefaultPlatform, device.Platform)
	assert.True(t, device.Online)
	assert.Equal(t, fx.clock.Now(), device.LastSeen)
}

func TestDeviceService_Register_ReassignsOwnership(t *testing.T) {
	fx := createTestDeviceService(t)

	ctx := context.Background()
	previousOwner := uuid.New()
	newOwner := uuid.New()

	fx.deviceRepo.EXPECT().
		FindByID(ctx, "laptop").
		Return(&entity.Device{ID: "laptop", UserID: previousOwner, Kind: entity.DeviceKindDesktop}, nil)

	fx.deviceRepo.EXPECT().
		Upsert(ctx, mock.MatchedBy(func(d *entity.Device) bool { return d.UserID == newOwner })).
		Return(nil)

	device, err := fx.service.Register(ctx, newOwner, &usecase.RegisterDeviceInput{
		DeviceID: "laptop",
		Name:     "Work laptop",
		Kind:     "desktop",
		Platform: "linux",
	})
	require.NoError(t, err)
	assert.Equal(t, newOwner, device.UserID)
	assert.Equal(t, "linux", device.Platform)
}

func TestDeviceService_Register_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input *usecase.RegisterDeviceInput
	}{
		{name: "nil input", input: nil},
		{name: "missing id", input: &usecase.RegisterDeviceInput{Name: "x", Kind: "mobile"}},
		{name: "missing name", input: &usecase.RegisterDeviceInput{DeviceID: "d", Kind: "mobile"}},
		{name: "missing kind", input: &usecase.RegisterDeviceInput{DeviceID: "d", Name: "x"}},
		{name: "unknown kind", input: &usecase.RegisterDeviceInput{DeviceID: "d", Name: "x", Kind: "toaster"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestDeviceService(t)

			_, err := fx.service.Register(context.Background(), uuid.New(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
		})
	}
}

func TestDeviceService_Heartbeat(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("touches owned device", func(t *testing.T) {
		fx := createTestDeviceService(t)
		fx.deviceRepo.EXPECT().FindByID(ctx, "d1").Return(&entity.Device{ID: "d1", UserID: userID}, nil)
		fx.deviceRepo.EXPECT().Touch(ctx, "d1", fx.clock.Now()).Return(nil)

		require.NoError(t, fx.service.Heartbeat(ctx, userID, "d1"))
	})

	t.Run("unknown device is a no-op", func(t *testing.T) {
		fx := createTestDeviceService(t)
		fx.deviceRepo.EXPECT().FindByID(ctx, "ghost").Return(nil, repository.ErrDeviceNotFound)

		require.NoError(t, fx.service.Heartbeat(ctx, userID, "ghost"))
	})

	t.Run("foreign device is rejected", func(t *testing.T) {
		fx := createTestDeviceService(t)
		fx.deviceRepo.EXPECT().FindByID(ctx, "d2").Return(&entity.Device{ID: "d2", UserID: uuid.New()}, nil)

		err := fx.service.Heartbeat(ctx, userID, "d2")
		assert.ErrorIs(t, err, domainerrors.ErrDeviceForbidden)
	})

	t.Run("repository failure is wrapped", func(t *testing.T) {
		fx := createTestDeviceService(t)
		fx.deviceRepo.EXPECT().FindByID(ctx, "d3").Return(nil, errors.New("connection reset"))

		err := fx.service.Heartbeat(ctx, userID, "d3")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestDeviceService_List_DerivesOnlineState(t *testing.T) {
	fx := createTestDeviceService(t)

	ctx := context.Background()
	userID := uuid.New()
	now := fx.clock.Now()

	fx.deviceRepo.EXPECT().FindByUser(ctx, userID).Return([]*entity.Device{
		{ID: "fresh", UserID: userID, Online: true, LastSeen: now.Add(-30 * time.Second)},
		{ID: "stale", UserID: userID, Online: true, LastSeen: now.Add(-10 * time.Minute)},
	}, nil)

	devices, err := fx.service.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.True(t, devices[0].Online)
	assert.False(t, devices[1].Online)
}
