package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims of a focusguard bearer token.
type Claims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies bearer tokens for users and their agents.
type TokenService interface {
	GenerateToken(userID uuid.UUID) (string, error)

	// ValidateToken returns the claims of a signed, unexpired token.
	ValidateToken(tokenString string) (*Claims, error)

	TokenTTL() time.Duration
}
