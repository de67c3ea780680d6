package postgres

import (
	"context"
	"time"

	"focusguard/internal/domain/entity"
	domainerrors "focusguard/internal/domain/errors"
	"focusguard/internal/domain/repository"
	"focusguard/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deviceRepository implements the repository.DeviceRepository interface.
type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository is the constructor for deviceRepository.
func NewDeviceRepository(db *gorm.DB) repository.DeviceRepository {
	return &deviceRepository{
		db: db,
	}
}

// Upsert inserts the device or overwrites every column of the row with the same ID.
func (repo *deviceRepository) Upsert(ctx context.Context, device *entity.Device) error {
	deviceM := fromDeviceDomain(device)

	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "name", "kind", "platform", "online", "last_seen", "updated_at"}),
		}).
		Create(deviceM).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to upsert device")
	}

	return nil
}

// FindByID retrieves a device by its client-generated ID.
func (repo *deviceRepository) FindByID(ctx context.Context, id string) (*entity.Device, error) {
	var deviceM model.DeviceModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&deviceM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrDeviceNotFound
		}

		return nil, errors.Wrap(err, "failed to find device by ID")
	}

	return toDeviceDomain(&deviceM), nil
}

// FindByUser retrieves all devices owned by a user, oldest registration first.
func (repo *deviceRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error) {
	var deviceMs []*model.DeviceModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&deviceMs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find devices by user")
	}

	devices := make([]*entity.Device, 0, len(deviceMs))
	for _, deviceM := range deviceMs {
		devices = append(devices, toDeviceDomain(deviceM))
	}

	return devices, nil
}

// Touch marks a device online and records when it was last seen.
func (repo *deviceRepository) Touch(ctx context.Context, id string, seenAt time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.DeviceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"online":    true,
			"last_seen": seenAt,
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to touch device")
	}
	if result.RowsAffected == 0 {
		return repository.ErrDeviceNotFound
	}

	return nil
}

// Count returns the number of registered devices.
func (repo *deviceRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&model.DeviceModel{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count devices")
	}

	return count, nil
}

// --- Mapper Functions ---

func toDeviceDomain(data *model.DeviceModel) *entity.Device {
	if data == nil {
		return nil
	}

	return &entity.Device{
		ID:       data.ID,
		UserID:   data.UserID,
		Name:     data.Name,
		Kind:     entity.DeviceKind(data.Kind),
		Platform: data.Platform,
		Online:   data.Online,
		LastSeen: data.LastSeen,
	}
}

func fromDeviceDomain(data *entity.Device) *model.DeviceModel {
	if data == nil {
		return nil
	}

	return &model.DeviceModel{
		ID:       data.ID,
		UserID:   data.UserID,
		Name:     data.Name,
		Kind:     string(data.Kind),
		Platform: data.Platform,
		Online:   data.Online,
		LastSeen: data.LastSeen,
	}
}
