package impl

import (
	"context"
	"log/slog"
	"time"

	"focusguard/config"
	deliverycontext "focusguard/internal/delivery/context"
	"focusguard/internal/domain/constants"
	"focusguard/internal/domain/entity"
	domainerrors "focusguard/internal/domain/errors"
	"focusguard/internal/domain/repository"
	"focusguard/internal/domain/service"
	"focusguard/internal/usecase"
	"focusguard/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface.
// Every mutation and every read that may expire a session runs under the user's lock.
type sessionService struct {
	txManager   repository.TransactionManager
	userRepo    repository.UserRepository
	deviceRepo  repository.DeviceRepository
	sessionRepo repository.SessionRepository
	publisher   service.EventPublisher
	selfID      string
	locks       *userLocks
	logger      *slog.Logger
	now         func() time.Time
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	UserRepo    repository.UserRepository
	DeviceRepo  repository.DeviceRepository
	SessionRepo repository.SessionRepository
	Publisher   service.EventPublisher
	Config      *config.Config
	Logger      *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return &sessionService{
		txManager:   params.TxManager,
		userRepo:    params.UserRepo,
		deviceRepo:  params.DeviceRepo,
		sessionRepo: params.SessionRepo,
		publisher:   params.Publisher,
		selfID:      selfIdentifier(params.Config),
		locks:       newUserLocks(),
		logger:      params.Logger,
		now:         time.Now,
	}
}

func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Start ends every active session of the user and creates a new one in a single transaction.
func (srv *sessionService) Start(ctx context.Context, userID uuid.UUID, input *usecase.StartSessionInput) (*entity.Session, error) {
	if input == nil || input.Target.IsEmpty() {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(`targetDevices must be "all" or a non-empty list`))
	}
	if input.Duration < 0 {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("duration must not be negative"))
	}
	if input.Duration > constants.MaxSessionDuration {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("duration must not exceed " + constants.MaxSessionDuration.String()))
	}

	var now time.Time
	var created *entity.Session
	var superseded []*entity.Session

	err := srv.withUserLock(ctx, userID, func(batch *eventBatch) error {
		now = srv.now()
		if err := srv.verifyTargetOwnership(ctx, userID, input.Target); err != nil {
			return err
		}

		if err := srv.startTx(ctx, userID, input, now, &created, &superseded); err != nil {
			srv.log(ctx).Error("Failed to start session", slog.Any("userID", userID), slog.Any("error", err))

			return errors.Wrap(err, "failed to execute start session transaction")
		}

		for _, old := range superseded {
			srv.record(ctx, batch, service.SessionSuperseded, old)
		}
		srv.record(ctx, batch, service.SessionStarted, created)

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Session started",
		slog.Any("sessionID", created.ID),
		slog.Any("userID", userID),
		slog.String("target", created.TargetDevices.String()),
		slog.String("duration", util.FormatRemaining(created.EndsAt, now)),
		slog.Int("superseded", len(superseded)),
	)

	return created.Clone(), nil
}

// startTx ends the active sessions of the user and creates the new one in one transaction.
func (srv *sessionService) startTx(
	ctx context.Context,
	userID uuid.UUID,
	input *usecase.StartSessionInput,
	now time.Time,
	created **entity.Session,
	superseded *[]*entity.Session,
) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()
		sessionRepo := repoFactory.NewSessionRepository()

		block, white, _, err := loadUserLists(ctx, userRepo, userID, srv.selfID)
		if err != nil {
			return err
		}

		active, err := sessionRepo.FindActiveByUser(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find active sessions")
		}
		for _, old := range active {
			if err := sessionRepo.End(ctx, old.ID, endTimeFor(old, now)); err != nil {
				return errors.Wrap(err, "failed to end superseded session")
			}
			*superseded = append(*superseded, old)
		}

		session := &entity.Session{
			ID:            uuid.New(),
			UserID:        userID,
			Active:        true,
			StartedAt:     now,
			TargetDevices: input.Target,
			Blocklist: entity.Blocklist{
				Apps:     overrideOr(input.OverridePackages, block.Apps),
				Sites:    overrideOr(input.OverrideWebsites, block.Sites),
				Keywords: overrideOr(input.OverrideKeywords, block.Keywords),
			}.Normalized(),
			Whitelist: white,
		}
		if input.Duration > 0 {
			endsAt := now.Add(input.Duration)
			session.EndsAt = &endsAt
		}

		if err := sessionRepo.Create(ctx, session); err != nil {
			return errors.Wrap(err, "failed to create session")
		}
		*created = session

		return nil
	})
}

// Stop ends one session or, without an ID, every active session of the user.
func (srv *sessionService) Stop(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID) error {
	return srv.withUserLock(ctx, userID, func(batch *eventBatch) error {
		return srv.stopLocked(ctx, batch, userID, sessionID)
	})
}

func (srv *sessionService) stopLocked(ctx context.Context, batch *eventBatch, userID uuid.UUID, sessionID *uuid.UUID) error {
	now := srv.now()

	if sessionID != nil {
		session, err := srv.sessionRepo.FindByID(ctx, *sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return nil
			}

			return errors.Wrap(err, "failed to find session")
		}

		// Verify ownership
		if session.UserID != userID {
			return errors.WithStack(domainerrors.ErrSessionForbidden)
		}
		if !session.Active {
			return nil
		}

		return srv.endSession(ctx, batch, session, now, service.SessionStopped)
	}

	active, err := srv.sessionRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to find active sessions")
	}
	for _, session := range active {
		if err := srv.endSession(ctx, batch, session, now, service.SessionStopped); err != nil {
			return err
		}
	}

	return nil
}

// GetActiveFor returns the user's active session if it targets deviceID.
// Sessions found past their end time are ended on the way.
func (srv *sessionService) GetActiveFor(ctx context.Context, userID uuid.UUID, deviceID string) (*entity.Session, error) {
	if deviceID != "" {
		device, err := srv.deviceRepo.FindByID(ctx, deviceID)
		switch {
		case err == nil && device.UserID != userID:
			return nil, errors.WithStack(domainerrors.ErrDeviceForbidden)
		case err != nil && !errors.Is(err, repository.ErrDeviceNotFound):
			return nil, errors.Wrap(err, "failed to find device by ID")
		}
	}

	var found *entity.Session
	err := srv.withUserLock(ctx, userID, func(batch *eventBatch) error {
		active, err := srv.liveSessions(ctx, batch, userID)
		if err != nil {
			return err
		}

		for _, session := range active {
			if session.TargetDevices.Includes(deviceID) {
				found = session.Clone()

				return nil
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// SyncConfig overwrites the lists of the user's active session.
func (srv *sessionService) SyncConfig(ctx context.Context, userID uuid.UUID, block entity.Blocklist, white entity.Whitelist) error {
	block = block.Normalized()
	white = white.Normalized(srv.selfID)

	return srv.withUserLock(ctx, userID, func(batch *eventBatch) error {
		active, err := srv.liveSessions(ctx, batch, userID)
		if err != nil {
			return err
		}

		for _, session := range active {
			if err := srv.sessionRepo.UpdateLists(ctx, session.ID, block, white); err != nil {
				return errors.Wrap(err, "failed to update session lists")
			}
			srv.record(ctx, batch, service.SessionConfigSynced, session)
			srv.log(ctx).Debug("Session config synced", slog.Any("sessionID", session.ID), slog.Any("userID", userID))
		}

		return nil
	})
}

// Stats counts users, devices and active sessions.
func (srv *sessionService) Stats(ctx context.Context) (*usecase.Stats, error) {
	users, err := srv.userRepo.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count users")
	}
	devices, err := srv.deviceRepo.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count devices")
	}
	sessions, err := srv.sessionRepo.CountActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count active sessions")
	}

	return &usecase.Stats{Users: users, Devices: devices, ActiveSessions: sessions}, nil
}

// liveSessions returns the active sessions of a user after ending the expired ones.
// The caller must hold the user's lock.
func (srv *sessionService) liveSessions(ctx context.Context, batch *eventBatch, userID uuid.UUID) ([]*entity.Session, error) {
	active, err := srv.sessionRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find active sessions")
	}

	now := srv.now()
	live := make([]*entity.Session, 0, len(active))
	for _, session := range active {
		if session.Expired(now) {
			if err := srv.endSession(ctx, batch, session, now, service.SessionExpired); err != nil {
				return nil, err
			}

			continue
		}
		live = append(live, session)
	}

	return live, nil
}

func (srv *sessionService) endSession(ctx context.Context, batch *eventBatch, session *entity.Session, now time.Time, reason service.SessionEventType) error {
	endedAt := endTimeFor(session, now)
	if err := srv.sessionRepo.End(ctx, session.ID, endedAt); err != nil {
		return errors.Wrap(err, "failed to end session")
	}
	session.End(endedAt)

	srv.record(ctx, batch, reason, session)
	srv.log(ctx).Info("Session ended", slog.Any("sessionID", session.ID), slog.String("reason", string(reason)))

	return nil
}

// verifyTargetOwnership rejects targets naming a device registered to another user.
// Unknown device IDs are allowed so a session can be prepared before a device registers.
func (srv *sessionService) verifyTargetOwnership(ctx context.Context, userID uuid.UUID, target entity.TargetDevices) error {
	for _, id := range target.DeviceIDs() {
		device, err := srv.deviceRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrDeviceNotFound) {
				continue
			}

			return errors.Wrap(err, "failed to find device by ID")
		}
		if device.UserID != userID {
			return errors.WithStack(domainerrors.ErrDeviceForbidden.WithDetails("device " + id + " belongs to another user"))
		}
	}

	return nil
}

// eventBatch collects the lifecycle events of one locked operation.
type eventBatch struct {
	events []*service.SessionEvent
}

// withUserLock runs fn under the user's lock and publishes the events it recorded once
// the lock is released, so a slow broker never holds up the user's other requests.
// Events recorded before fn failed describe committed changes and are published too.
func (srv *sessionService) withUserLock(ctx context.Context, userID uuid.UUID, fn func(batch *eventBatch) error) error {
	batch := &eventBatch{}

	unlock := srv.locks.Lock(userID)
	err := fn(batch)
	unlock()

	srv.flush(ctx, batch)

	return err
}

func (srv *sessionService) record(ctx context.Context, batch *eventBatch, eventType service.SessionEventType, session *entity.Session) {
	if srv.publisher == nil || session == nil {
		return
	}

	batch.events = append(batch.events, &service.SessionEvent{
		RequestID:     deliverycontext.GetRequestIDFromContext(ctx),
		Type:          eventType,
		SessionID:     session.ID.String(),
		UserID:        session.UserID.String(),
		TargetDevices: session.TargetDevices.DeviceIDs(),
		OccurredAt:    srv.now(),
	})
}

func (srv *sessionService) flush(ctx context.Context, batch *eventBatch) {
	for _, event := range batch.events {
		if err := srv.publisher.PublishSessionEvent(ctx, event); err != nil {
			srv.log(ctx).Warn("Failed to publish session event",
				slog.String("type", string(event.Type)),
				slog.String("sessionID", event.SessionID),
				slog.Any("error", err),
			)
		}
	}
}

// endTimeFor keeps the original end time of an already expired session.
func endTimeFor(session *entity.Session, now time.Time) time.Time {
	if session.EndsAt != nil && session.EndsAt.Before(now) {
		return *session.EndsAt
	}

	return now
}

func overrideOr(override, fallback []string) []string {
	if override != nil {
		return override
	}

	return fallback
}
