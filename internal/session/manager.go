// Package session tracks the signed-in user and applies the profile rules
// around it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/typicalmohit/tinku-ji/internal/crypto"
	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

var (
	ErrUserExists         = errors.New("session: user already exists")
	ErrInvalidCredentials = errors.New("session: invalid email or password")
	ErrNotSignedIn        = errors.New("session: not signed in")
	ErrPhoneTypeExists    = errors.New("session: phone of this type already exists")
)

type AuthObserver interface {
	ObserveAuth(kind string, err error)
}

type Deps struct {
	Users     storage.UserRepository
	Phones    storage.PhoneRepository
	Bookings  storage.BookingRepository
	Documents storage.DocumentRepository
	Files     *filestore.Store
	Marker    MarkerStore
	Hasher    crypto.PasswordHasher
	Logger    *slog.Logger
	Observer  AuthObserver
}

// Manager owns the cached profile of the signed-in user. All methods are
// safe for concurrent use.
type Manager struct {
	users     storage.UserRepository
	phones    storage.PhoneRepository
	bookings  storage.BookingRepository
	documents storage.DocumentRepository
	files     *filestore.Store
	marker    MarkerStore
	hasher    crypto.PasswordHasher
	logger    *slog.Logger
	observer  AuthObserver

	mu      sync.RWMutex
	current *storage.User
}

func NewManager(deps Deps) (*Manager, error) {
	switch {
	case deps.Users == nil, deps.Phones == nil, deps.Bookings == nil, deps.Documents == nil:
		return nil, fmt.Errorf("new session manager: repositories are required")
	case deps.Files == nil:
		return nil, fmt.Errorf("new session manager: file store is required")
	case deps.Marker == nil:
		return nil, fmt.Errorf("new session manager: marker store is required")
	}
	if err := deps.Hasher.Params.Validate(); err != nil {
		return nil, fmt.Errorf("new session manager: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Manager{
		users:     deps.Users,
		phones:    deps.Phones,
		bookings:  deps.Bookings,
		documents: deps.Documents,
		files:     deps.Files,
		marker:    deps.Marker,
		hasher:    deps.Hasher,
		logger:    logger,
		observer:  deps.Observer,
	}, nil
}

func (m *Manager) SignUp(ctx context.Context, email string, password []byte, name string) (user *storage.User, err error) {
	defer func() { m.observe("signup", err) }()

	email = normalizeEmail(email)
	existing, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	created := &storage.User{
		Email:    email,
		Password: hash,
		Name:     strings.TrimSpace(name),
	}
	if err := m.users.Create(ctx, created); err != nil {
		if errors.Is(err, storage.ErrUniqueViolation) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}

	if err := m.marker.Save(created.ID); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	m.setCurrent(created)
	m.logger.Info("user signed up", "user_id", created.ID)
	return m.copyCurrent(), nil
}

// SignIn checks the credentials. Rows holding a legacy plaintext password
// are rehashed after a successful comparison.
func (m *Manager) SignIn(ctx context.Context, email string, password []byte) (user *storage.User, err error) {
	defer func() { m.observe("signin", err) }()

	email = normalizeEmail(email)
	found, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if found == nil {
		m.logger.Info("sign in rejected", "email", email, "reason", "unknown email")
		return nil, ErrInvalidCredentials
	}

	ok, rehash, err := m.hasher.Verify(found.Password, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if !ok {
		m.logger.Info("sign in rejected", "email", email, "reason", "password mismatch")
		return nil, ErrInvalidCredentials
	}

	if rehash {
		if hash, err := m.hasher.Hash(password); err != nil {
			m.logger.Warn("rehash password", "user_id", found.ID, "error", err)
		} else if err := m.users.Update(ctx, found.ID, storage.Patch{}.Set("password", hash)); err != nil {
			m.logger.Warn("store rehashed password", "user_id", found.ID, "error", err)
		} else {
			found.Password = hash
		}
	}

	if err := m.marker.Save(found.ID); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	m.setCurrent(found)
	m.logger.Info("user signed in", "user_id", found.ID)
	return m.copyCurrent(), nil
}

// SignOut forgets the session. Stored data is untouched.
func (m *Manager) SignOut(_ context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.marker.Clear(); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Restore loads the user named by the persisted marker. A marker pointing at
// a user that no longer exists is cleared.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	id, err := m.marker.Load()
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if id == "" {
		return false, nil
	}

	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if user == nil {
		if err := m.marker.Clear(); err != nil {
			return false, fmt.Errorf("restore session: %w", err)
		}
		return false, nil
	}

	m.setCurrent(user)
	return true, nil
}

// Profile returns a copy of the cached profile.
func (m *Manager) Profile() (*storage.User, bool) {
	user := m.copyCurrent()
	return user, user != nil
}

func (m *Manager) currentID() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return "", ErrNotSignedIn
	}
	return m.current.ID, nil
}

// refresh reloads the cached profile from storage.
func (m *Manager) refresh(ctx context.Context, id string) (*storage.User, error) {
	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	m.setCurrent(user)
	return m.copyCurrent(), nil
}

func (m *Manager) setCurrent(user *storage.User) {
	cached := *user
	cached.Password = ""
	m.mu.Lock()
	m.current = &cached
	m.mu.Unlock()
}

func (m *Manager) copyCurrent() *storage.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	out := *m.current
	return &out
}

func (m *Manager) observe(kind string, err error) {
	if m.observer != nil {
		m.observer.ObserveAuth(kind, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
