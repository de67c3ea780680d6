// Package repository declares the storage contracts for accounts, devices and sessions.
package repository

import (
	"context"
	"errors"

	"focusguard/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository stores accounts and their default blocklist and whitelist.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail expects an already normalized email.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create returns ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, user *entity.User) error

	// UpdateLists replaces both default lists of a user.
	UpdateLists(ctx context.Context, id uuid.UUID, block entity.Blocklist, white entity.Whitelist) error

	// Count returns the number of registered users.
	Count(ctx context.Context) (int64, error)
}
