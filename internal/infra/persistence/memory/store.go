// Package memory provides process-local repositories for development and tests.
// State is lost when the process exits.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"focusguard/internal/domain/entity"
	"focusguard/internal/domain/repository"

	"github.com/google/uuid"
)

// Store holds users, devices and sessions behind a single lock.
type Store struct {
	mu       sync.RWMutex
	seq      int64
	users    map[uuid.UUID]*entity.User
	emails   map[string]uuid.UUID
	devices  map[string]*storedDevice
	sessions map[uuid.UUID]*entity.Session
}

type storedDevice struct {
	device *entity.Device
	seq    int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*entity.User),
		emails:   make(map[string]uuid.UUID),
		devices:  make(map[string]*storedDevice),
		sessions: make(map[uuid.UUID]*entity.Session),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return &userRepository{s} }

// Devices returns the device repository view of the store.
func (s *Store) Devices() repository.DeviceRepository { return &deviceRepository{s} }

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepository{s} }

// TxManager returns a transaction manager over the store. Each repository call is
// atomic on its own; Execute does not roll back writes made before fn fails.
func (s *Store) TxManager() repository.TransactionManager { return &txManager{s} }

type txManager struct{ s *Store }

func (tm *txManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(tm)
}

func (tm *txManager) NewUserRepository() repository.UserRepository { return tm.s.Users() }
func (tm *txManager) NewDeviceRepository() repository.DeviceRepository { return tm.s.Devices() }
func (tm *txManager) NewSessionRepository() repository.SessionRepository { return tm.s.Sessions() }

// --- users ---

type userRepository struct{ s *Store }

func (r *userRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(user), nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(r.s.users[id]), nil
}

func (r *userRepository) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.emails[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	r.s.users[user.ID] = cloneUser(user)
	r.s.emails[user.Email] = user.ID

	return nil
}

func (r *userRepository) UpdateLists(_ context.Context, id uuid.UUID, block entity.Blocklist, white entity.Whitelist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Blocklist = cloneBlocklist(block)
	user.Whitelist = cloneWhitelist(white)
	user.UpdatedAt = time.Now()

	return nil
}

func (r *userRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return int64(len(r.s.users)), nil
}

// --- devices ---

type deviceRepository struct{ s *Store }

func (r *deviceRepository) Upsert(_ context.Context, device *entity.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	copied := *device
	if existing, ok := r.s.devices[device.ID]; ok {
		existing.device = &copied

		return nil
	}

	r.s.seq++
	r.s.devices[device.ID] = &storedDevice{device: &copied, seq: r.s.seq}

	return nil
}

func (r *deviceRepository) FindByID(_ context.Context, id string) (*entity.Device, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.devices[id]
	if !ok {
		return nil, repository.ErrDeviceNotFound
	}
	copied := *stored.device

	return &copied, nil
}

func (r *deviceRepository) FindByUser(_ context.Context, userID uuid.UUID) ([]*entity.Device, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	owned := make([]*storedDevice, 0)
	for _, stored := range r.s.devices {
		if stored.device.UserID == userID {
			owned = append(owned, stored)
		}
	}
	slices.SortFunc(owned, func(a, b *storedDevice) int { return cmp.Compare(a.seq, b.seq) })

	devices := make([]*entity.Device, 0, len(owned))
	for _, stored := range owned {
		copied := *stored.device
		devices = append(devices, &copied)
	}

	return devices, nil
}

func (r *deviceRepository) Touch(_ context.Context, id string, seenAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.devices[id]
	if !ok {
		return repository.ErrDeviceNotFound
	}
	stored.device.Online = true
	stored.device.LastSeen = seenAt

	return nil
}

func (r *deviceRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return int64(len(r.s.devices)), nil
}

// --- sessions ---

type sessionRepository struct{ s *Store }

func (r *sessionRepository) Create(_ context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Active {
		for _, existing := range r.s.sessions {
			if existing.UserID == session.UserID && existing.Active {
				return repository.ErrActiveSessionExists
			}
		}
	}
	r.s.sessions[session.ID] = session.Clone()

	return nil
}

func (r *sessionRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}

	return session.Clone(), nil
}

func (r *sessionRepository) FindActiveByUser(_ context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	active := make([]*entity.Session, 0, 1)
	for _, session := range r.s.sessions {
		if session.UserID == userID && session.Active {
			active = append(active, session.Clone())
		}
	}
	slices.SortFunc(active, func(a, b *entity.Session) int { return b.StartedAt.Compare(a.StartedAt) })

	return active, nil
}

func (r *sessionRepository) End(_ context.Context, id uuid.UUID, endedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.Active = false
	end := endedAt
	session.EndsAt = &end

	return nil
}

func (r *sessionRepository) UpdateLists(_ context.Context, id uuid.UUID, block entity.Blocklist, white entity.Whitelist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.Blocklist = cloneBlocklist(block)
	session.Whitelist = cloneWhitelist(white)

	return nil
}

func (r *sessionRepository) CountActive(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, session := range r.s.sessions {
		if session.Active {
			count++
		}
	}

	return count, nil
}

func cloneUser(user *entity.User) *entity.User {
	copied := *user
	copied.Blocklist = cloneBlocklist(user.Blocklist)
	copied.Whitelist = cloneWhitelist(user.Whitelist)

	return &copied
}

func cloneBlocklist(b entity.Blocklist) entity.Blocklist {
	return entity.Blocklist{
		Apps:     append([]string{}, b.Apps...),
		Sites:    append([]string{}, b.Sites...),
		Keywords: append([]string{}, b.Keywords...),
	}
}

func cloneWhitelist(w entity.Whitelist) entity.Whitelist {
	return entity.Whitelist{
		Apps:  append([]string{}, w.Apps...),
		Sites: append([]string{}, w.Sites...),
	}
}
