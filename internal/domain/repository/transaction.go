package repository

import "context"

// TransactionManager runs a unit of work against one storage transaction.
type TransactionManager interface {
	// Execute commits when fn returns nil and rolls back otherwise. Backends
	// without transactions run fn directly.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to the running transaction.
type RepositoryFactory interface {
	NewUserRepository() UserRepository
	NewDeviceRepository() DeviceRepository
	NewSessionRepository() SessionRepository
}
