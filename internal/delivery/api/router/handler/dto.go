package handler

import (
	"time"

	"focusguard/internal/domain/entity"
	"focusguard/internal/usecase"

	"github.com/google/uuid"
)

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// ProfileResponse is returned by /auth/me.
type ProfileResponse struct {
	User        *UserResponse `json:"user"`
	DeviceCount int           `json:"deviceCount"`
}

// ListsResponse is returned by the config endpoints.
type ListsResponse struct {
	Blocklists entity.Blocklist `json:"blocklists"`
	Whitelists entity.Whitelist `json:"whitelists"`
}

// SessionResponse is the flattened session shape consumed by the agents.
type SessionResponse struct {
	ID                  uuid.UUID            `json:"id"`
	IsActive            bool                 `json:"isActive"`
	TargetDevices       entity.TargetDevices `json:"targetDevices"`
	BlockedWebsites     []string             `json:"blockedWebsites"`
	BlockedPackages     []string             `json:"blockedPackages"`
	BlockedKeywords     []string             `json:"blockedKeywords"`
	WhitelistedWebsites []string             `json:"whitelistedWebsites"`
	WhitelistedPackages []string             `json:"whitelistedPackages"`
	StartTime           time.Time            `json:"startTime"`
	EndTime             *time.Time           `json:"endTime"`
}

func toUserResponse(user *entity.User) *UserResponse {
	if user == nil {
		return nil
	}

	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

func toAuthResponse(output *usecase.AuthOutput) *AuthResponse {
	return &AuthResponse{
		Token: output.Token,
		User:  toUserResponse(output.User),
	}
}

func toListsResponse(output *usecase.ListsOutput) *ListsResponse {
	return &ListsResponse{
		Blocklists: output.Blocklist,
		Whitelists: output.Whitelist,
	}
}

func toSessionResponse(session *entity.Session) *SessionResponse {
	if session == nil {
		return nil
	}

	return &SessionResponse{
		ID:                  session.ID,
		IsActive:            session.Active,
		TargetDevices:       session.TargetDevices,
		BlockedWebsites:     nonNil(session.Blocklist.Sites),
		BlockedPackages:     nonNil(session.Blocklist.Apps),
		BlockedKeywords:     nonNil(session.Blocklist.Keywords),
		WhitelistedWebsites: nonNil(session.Whitelist.Sites),
		WhitelistedPackages: nonNil(session.Whitelist.Apps),
		StartTime:           session.StartedAt,
		EndTime:             session.EndsAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
