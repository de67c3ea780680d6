// Package persistence selects the repository backend configured by storage.driver.
package persistence

import (
	"log/slog"
	"strings"

	"focusguard/config"
	"focusguard/internal/domain/constants"
	"focusguard/internal/domain/repository"
	"focusguard/internal/infra/persistence/memory"
	"focusguard/internal/infra/persistence/postgres"

	"go.uber.org/fx"
)

// Params holds dependencies for the repository provider, injected by Fx.
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// Repositories exposes every repository of the selected backend to Fx.
type Repositories struct {
	fx.Out

	Users     repository.UserRepository
	Devices   repository.DeviceRepository
	Sessions  repository.SessionRepository
	TxManager repository.TransactionManager
}

// New builds the repositories for storage.driver: memory, sqlite or postgres.
func New(params Params) (Repositories, error) {
	driver := strings.ToLower(strings.TrimSpace(params.Config.Storage.Driver))
	params.Logger.Info("Initializing storage", slog.String("driver", driver))

	if driver == "" || driver == constants.StorageDriverMemory {
		store := memory.NewStore()

		return Repositories{
			Users:     store.Users(),
			Devices:   store.Devices(),
			Sessions:  store.Sessions(),
			TxManager: store.TxManager(),
		}, nil
	}

	params.Config.Storage.Driver = driver
	db, err := postgres.New(postgres.Params{
		Lifecycle: params.Lc,
		Config:    params.Config,
		Logger:    params.Logger,
	})
	if err != nil {
		return Repositories{}, err
	}

	return Repositories{
		Users:     postgres.NewUserRepository(db),
		Devices:   postgres.NewDeviceRepository(db),
		Sessions:  postgres.NewSessionRepository(db),
		TxManager: postgres.NewTransactionManager(db),
	}, nil
}
