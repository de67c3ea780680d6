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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// sessionRepository implements the repository.SessionRepository interface.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create persists a new session. A second active session for the same user
// violates idx_sessions_one_active.
func (repo *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	if err := repo.db.WithContext(ctx).Create(fromSessionDomain(session)).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrActiveSessionExists
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	return nil
}

// FindByID retrieves a session by its ID.
func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	var sessionM model.SessionModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.Wrap(err, "failed to find session by id")
	}

	return toSessionDomain(&sessionM), nil
}

// FindActiveByUser retrieves the sessions of a user still flagged active.
func (repo *sessionRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	var sessionMs []*model.SessionModel
	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("started_at DESC").
		Find(&sessionMs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find active sessions")
	}

	sessions := make([]*entity.Session, 0, len(sessionMs))
	for _, sessionM := range sessionMs {
		sessions = append(sessions, toSessionDomain(sessionM))
	}

	return sessions, nil
}

// End flags the session inactive and stores its end time.
func (repo *sessionRepository) End(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active":  false,
			"ends_at": endedAt,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to end session")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// UpdateLists overwrites the session's snapshot lists.
func (repo *sessionRepository) UpdateLists(ctx context.Context, id uuid.UUID, block entity.Blocklist, white entity.Whitelist) error {
	result := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"blocked_websites":     datatypes.NewJSONSlice(stringsOrEmpty(block.Sites)),
			"blocked_packages":     datatypes.NewJSONSlice(stringsOrEmpty(block.Apps)),
			"blocked_keywords":     datatypes.NewJSONSlice(stringsOrEmpty(block.Keywords)),
			"whitelisted_websites": datatypes.NewJSONSlice(stringsOrEmpty(white.Sites)),
			"whitelisted_packages": datatypes.NewJSONSlice(stringsOrEmpty(white.Apps)),
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update session lists")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// CountActive returns the number of sessions flagged active.
func (repo *sessionRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("active = ?", true).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count active sessions")
	}

	return count, nil
}

// --- Mapper Functions ---

func toSessionDomain(data *model.SessionModel) *entity.Session {
	if data == nil {
		return nil
	}

	target := entity.SpecificDevices(data.TargetDevices...)
	if data.TargetAll {
		target = entity.AllDevices()
	}

	return &entity.Session{
		ID:            data.ID,
		UserID:        data.UserID,
		Active:        data.Active,
		StartedAt:     data.StartedAt,
		EndsAt:        data.EndsAt,
		TargetDevices: target,
		Blocklist: entity.Blocklist{
			Apps:     stringsOrEmpty(data.BlockedPackages),
			Sites:    stringsOrEmpty(data.BlockedWebsites),
			Keywords: stringsOrEmpty(data.BlockedKeywords),
		},
		Whitelist: entity.Whitelist{
			Apps:  stringsOrEmpty(data.WhitelistedPackages),
			Sites: stringsOrEmpty(data.WhitelistedWebsites),
		},
	}
}

func fromSessionDomain(data *entity.Session) *model.SessionModel {
	if data == nil {
		return nil
	}

	return &model.SessionModel{
		ID:                  data.ID,
		UserID:              data.UserID,
		Active:              data.Active,
		StartedAt:           data.StartedAt,
		EndsAt:              data.EndsAt,
		TargetAll:           data.TargetDevices.IsAll(),
		TargetDevices:       datatypes.NewJSONSlice(stringsOrEmpty(data.TargetDevices.DeviceIDs())),
		BlockedWebsites:     datatypes.NewJSONSlice(stringsOrEmpty(data.Blocklist.Sites)),
		BlockedPackages:     datatypes.NewJSONSlice(stringsOrEmpty(data.Blocklist.Apps)),
		BlockedKeywords:     datatypes.NewJSONSlice(stringsOrEmpty(data.Blocklist.Keywords)),
		WhitelistedWebsites: datatypes.NewJSONSlice(stringsOrEmpty(data.Whitelist.Sites)),
		WhitelistedPackages: datatypes.NewJSONSlice(stringsOrEmpty(data.Whitelist.Apps)),
	}
}
