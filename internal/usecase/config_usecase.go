package usecase

import (
	"context"

	"focusguard/internal/domain/entity"

	"github.com/google/uuid"
)

// UpdateConfigInput carries the lists to replace. A nil field is left unchanged,
// a non-nil empty slice clears the list.
type UpdateConfigInput struct {
	BlockedWebsites     []string
	BlockedPackages     []string
	BlockedKeywords     []string
	WhitelistedWebsites []string
	WhitelistedPackages []string
}

// ListsOutput is a user's current blocklist and whitelist.
type ListsOutput struct {
	Blocklist entity.Blocklist
	Whitelist entity.Whitelist
}

// ConfigUsecase defines the per-user list store.
type ConfigUsecase interface {
	Get(ctx context.Context, userID uuid.UUID) (*ListsOutput, error)
	Update(ctx context.Context, userID uuid.UUID, input *UpdateConfigInput) (*ListsOutput, error)
}
