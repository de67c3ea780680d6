package impl

import (
	"context"
	"log/slog"

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

// configService implements the ConfigUsecase interface.
type configService struct {
	userRepo repository.UserRepository
	sessions usecase.SessionUsecase
	selfID   string
	locks    *userLocks
	logger   *slog.Logger
}

// ConfigServiceParams holds dependencies for ConfigService, injected by Fx.
type ConfigServiceParams struct {
	fx.In

	UserRepo repository.UserRepository
	Sessions usecase.SessionUsecase
	Config   *config.Config
	Logger   *slog.Logger
}

// NewConfigService creates a new config service instance
func NewConfigService(params ConfigServiceParams) usecase.ConfigUsecase {
	return &configService{
		userRepo: params.UserRepo,
		sessions: params.Sessions,
		selfID:   selfIdentifier(params.Config),
		locks:    newUserLocks(),
		logger:   params.Logger,
	}
}

func (srv *configService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Get returns the user's stored lists. An unknown user yields empty lists.
func (srv *configService) Get(ctx context.Context, userID uuid.UUID) (*usecase.ListsOutput, error) {
	block, white, _, err := loadUserLists(ctx, srv.userRepo, userID, srv.selfID)
	if err != nil {
		return nil, err
	}

	return &usecase.ListsOutput{Blocklist: block, Whitelist: white}, nil
}

// Update replaces every provided list and pushes the result into the active session.
func (srv *configService) Update(ctx context.Context, userID uuid.UUID, input *usecase.UpdateConfigInput) (*usecase.ListsOutput, error) {
	if input == nil {
		input = &usecase.UpdateConfigInput{}
	}

	unlock := srv.locks.Lock(userID)
	defer unlock()

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.WithStack(domainerrors.ErrUserNotFound)
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	block := entity.BlocklistPatch{
		Apps:     input.BlockedPackages,
		Sites:    input.BlockedWebsites,
		Keywords: input.BlockedKeywords,
	}.Apply(user.Blocklist)
	white := entity.WhitelistPatch{
		Apps:  input.WhitelistedPackages,
		Sites: input.WhitelistedWebsites,
	}.Apply(user.Whitelist, srv.selfID)

	if err := srv.userRepo.UpdateLists(ctx, userID, block, white); err != nil {
		return nil, errors.Wrap(err, "failed to update user lists")
	}

	if err := srv.sessions.SyncConfig(ctx, userID, block, white); err != nil {
		srv.log(ctx).Error("Failed to sync config into active session", slog.Any("userID", userID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to sync active session")
	}

	srv.log(ctx).Debug("Config updated",
		slog.Any("userID", userID),
		slog.Int("blockedWebsites", len(block.Sites)),
		slog.Int("blockedPackages", len(block.Apps)),
		slog.Int("blockedKeywords", len(block.Keywords)),
	)

	return &usecase.ListsOutput{Blocklist: block, Whitelist: white}, nil
}

// loadUserLists reads a user's normalized lists. found is false for an unknown user,
// in which case the lists are empty apart from the self identifier.
func loadUserLists(ctx context.Context, repo repository.UserRepository, userID uuid.UUID, selfID string) (entity.Blocklist, entity.Whitelist, bool, error) {
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.Blocklist{}.Normalized(), entity.Whitelist{}.Normalized(selfID), false, nil
		}

		return entity.Blocklist{}, entity.Whitelist{}, false, errors.Wrap(err, "failed to find user")
	}

	return user.Blocklist.Normalized(), user.Whitelist.Normalized(selfID), true, nil
}

func selfIdentifier(cfg *config.Config) string {
	if cfg == nil || cfg.Blocker.SelfIdentifier == "" {
		return config.DefaultSelfIdentifier
	}

	return cfg.Blocker.SelfIdentifier
}
