// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that owns devices, sessions and a default set of lists.
type User struct {
	ID           uuid.UUID // The Global Unique Identifier (GUID) for the user.
	Email        string    // Unique login identifier.
	Name         string    // The user's display name.
	PasswordHash string    // bcrypt hash of the user's password. Never serialized.
	Blocklist    Blocklist // The lists new sessions start from unless overridden.
	Whitelist    Whitelist // The whitelist every session of this user carries.
	CreatedAt    time.Time // Timestamp of when this user account was created.
	UpdatedAt    time.Time // Timestamp of the last modification to this user's data.
}
