// Package postgres contains the concrete implementation of the persistence layer using GORM.
// The same repositories serve the PostgreSQL and SQLite drivers.
package postgres

import (
	"context"

	"focusguard/internal/domain/entity"
	domainerrors "focusguard/internal/domain/errors"
	"focusguard/internal/domain/repository"
	"focusguard/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&userM).Error; err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	// Map the persistence model back to a pure domain entity before returning.
	return toUserDomain(&userM), nil
}

// FindByEmail retrieves a single user by their email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("email = ?", email).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user entity to the database.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	userM := fromUserDomain(user)

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateEmail
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// UpdateLists replaces the stored lists of a user.
func (repo *userRepository) UpdateLists(ctx context.Context, id uuid.UUID, block entity.Blocklist, white entity.Whitelist) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"blocked_websites":     datatypes.NewJSONSlice(stringsOrEmpty(block.Sites)),
			"blocked_packages":     datatypes.NewJSONSlice(stringsOrEmpty(block.Apps)),
			"blocked_keywords":     datatypes.NewJSONSlice(stringsOrEmpty(block.Keywords)),
			"whitelisted_websites": datatypes.NewJSONSlice(stringsOrEmpty(white.Sites)),
			"whitelisted_packages": datatypes.NewJSONSlice(stringsOrEmpty(white.Apps)),
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update user lists")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// Count returns the number of registered users.
func (repo *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&model.UserModel{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count users")
	}

	return count, nil
}

// --- Mapper Functions ---

func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:           data.ID,
		Email:        data.Email,
		Name:         data.Name,
		PasswordHash: data.PasswordHash,
		Blocklist: entity.Blocklist{
			Apps:     stringsOrEmpty(data.BlockedPackages),
			Sites:    stringsOrEmpty(data.BlockedWebsites),
			Keywords: stringsOrEmpty(data.BlockedKeywords),
		},
		Whitelist: entity.Whitelist{
			Apps:  stringsOrEmpty(data.WhitelistedPackages),
			Sites: stringsOrEmpty(data.WhitelistedWebsites),
		},
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:                  data.ID,
		Email:               data.Email,
		Name:                data.Name,
		PasswordHash:        data.PasswordHash,
		BlockedWebsites:     datatypes.NewJSONSlice(stringsOrEmpty(data.Blocklist.Sites)),
		BlockedPackages:     datatypes.NewJSONSlice(stringsOrEmpty(data.Blocklist.Apps)),
		BlockedKeywords:     datatypes.NewJSONSlice(stringsOrEmpty(data.Blocklist.Keywords)),
		WhitelistedWebsites: datatypes.NewJSONSlice(stringsOrEmpty(data.Whitelist.Sites)),
		WhitelistedPackages: datatypes.NewJSONSlice(stringsOrEmpty(data.Whitelist.Apps)),
		CreatedAt:           data.CreatedAt,
		UpdatedAt:           data.UpdatedAt,
	}
}

func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}

	return append([]string{}, values...)
}
