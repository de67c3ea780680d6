// Package service declares the stateless domain services the usecases depend on.
package service

// PasswordHasher hashes account passwords and checks login attempts against them.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Check reports whether password matches hash.
	Check(password, hash string) bool

	// ValidatePasswordStrength rejects passwords too weak to register with.
	ValidatePasswordStrength(password string) error
}
