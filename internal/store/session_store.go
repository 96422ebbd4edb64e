package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tienda/internal/models"
	"tienda/internal/repositories"
)

// AuthStatus is the state of the last authentication attempt.
type AuthStatus int

const (
	StatusIdle AuthStatus = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// String returns the lowercase name of the status.
func (s AuthStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Seed administrator account, guaranteed to exist after startup.
const (
	AdminEmail    = "admin@admin.com"
	adminName     = "Administrador"
	adminPassword = "admin123"
)

// SessionStore owns the authenticated session and the user collection,
// delegating durable storage to a UserRepository. It is safe for use from
// multiple goroutines: each mutating operation is serialized end to end,
// including its repository reads, so concurrent callers cannot interleave
// the read-modify-write sequences (duplicate check, id assignment).
//
// Success and error statuses only transition back to idle through
// ResetState or Logout, never automatically.
type SessionStore struct {
	repo  repositories.UserRepository
	creds CredentialScheme

	// opMu serializes whole mutating operations; mu guards field access.
	opMu sync.Mutex

	mu        sync.Mutex
	current   *models.User
	status    AuthStatus
	statusMsg string
	listeners []func()
}

// NewSessionStore creates a session store over the given repository. A nil
// scheme falls back to plain-text credentials, the original behavior.
func NewSessionStore(repo repositories.UserRepository, creds CredentialScheme) *SessionStore {
	if creds == nil {
		creds = PlainCredentials{}
	}
	return &SessionStore{
		repo:   repo,
		creds:  creds,
		status: StatusIdle,
	}
}

// Subscribe registers a callback invoked after every mutation of the
// session or the user collection. Callbacks must not block.
func (s *SessionStore) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// notify runs the registered callbacks outside the lock, so a callback may
// read the store's snapshot accessors.
func (s *SessionStore) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (s *SessionStore) setStatus(status AuthStatus, msg string) {
	s.mu.Lock()
	s.status = status
	s.statusMsg = msg
	s.mu.Unlock()
	s.notify()
}

// Status returns the current auth status and its associated message.
func (s *SessionStore) Status() (AuthStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.statusMsg
}

// CurrentUser returns a copy of the authenticated user, or nil when logged out.
func (s *SessionStore) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	user := *s.current
	return &user
}

// Login authenticates the email/password pair and, on success, sets the
// session user and returns a copy of it. Callers that need the identity of
// the account they just authenticated must use the return value, not the
// shared session snapshot, which a concurrent login may have replaced. On
// failure the session is left unset and the status carries the generic
// invalid-credentials message.
func (s *SessionStore) Login(email, password string) (*models.User, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setStatus(StatusLoading, "")

	user, err := s.creds.Authenticate(s.repo, email, password)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.setStatus(StatusError, ErrInvalidCredentials.Error())
			return nil, ErrInvalidCredentials
		}
		s.setStatus(StatusError, "login failed")
		return nil, fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	current := *user
	s.current = &current
	s.status = StatusSuccess
	s.statusMsg = "login successful"
	s.mu.Unlock()
	s.notify()

	result := *user
	return &result, nil
}

// Register creates a new non-admin account and logs it in. It fails with
// ErrValidation when any field is empty and ErrDuplicateEmail when the
// email is already taken; in both cases the collection is unchanged.
func (s *SessionStore) Register(name, email, password string) (*models.User, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setStatus(StatusLoading, "")

	if name == "" || email == "" || password == "" {
		s.setStatus(StatusError, ErrValidation.Error())
		return nil, ErrValidation
	}

	if _, err := s.repo.GetByEmail(email); err == nil {
		s.setStatus(StatusError, ErrDuplicateEmail.Error())
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repositories.ErrNotFound) {
		s.setStatus(StatusError, "registration failed")
		return nil, fmt.Errorf("register: %w", err)
	}

	user, err := s.createUser(name, email, password, false)
	if err != nil {
		s.setStatus(StatusError, "registration failed")
		return nil, err
	}

	s.mu.Lock()
	current := *user
	s.current = &current
	s.status = StatusSuccess
	s.statusMsg = "registration successful"
	s.mu.Unlock()
	s.notify()
	return user, nil
}

// Logout clears the session and resets the status to idle. The stored user
// collection is untouched.
func (s *SessionStore) Logout() {
	s.mu.Lock()
	s.current = nil
	s.status = StatusIdle
	s.statusMsg = ""
	s.mu.Unlock()
	s.notify()
}

// ResetState returns the status to idle without touching the session.
func (s *SessionStore) ResetState() {
	s.mu.Lock()
	s.status = StatusIdle
	s.statusMsg = ""
	s.mu.Unlock()
	s.notify()
}

// AddUser is the administrative creation path. It follows the same id
// assignment rule as Register but performs no duplicate-email check, and it
// never touches the session or the auth status.
func (s *SessionStore) AddUser(name, email, password string, isAdmin bool) (*models.User, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if name == "" || email == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.createUser(name, email, password, isAdmin)
	if err != nil {
		return nil, err
	}
	s.notify()
	return user, nil
}

// UpdateUser replaces all mutable fields of the user with the given id.
// A missing id is a silent no-op.
func (s *SessionStore) UpdateUser(id int, name, email, password string, isAdmin bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	user, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("update user %d: %w", id, err)
	}

	hashed, err := s.creds.Hash(password)
	if err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}

	user.Name = name
	user.Email = email
	user.Password = hashed
	user.IsAdmin = isAdmin
	if err := s.repo.Update(user); err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		updated := *user
		s.current = &updated
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// DeleteUser removes the user with the given id. A missing id is a silent
// no-op. Deleting the session user also logs the session out.
func (s *SessionStore) DeleteUser(id int) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.repo.DeleteByID(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
		s.status = StatusIdle
		s.statusMsg = ""
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// GetUserByID looks a user up directly.
func (s *SessionStore) GetUserByID(id int) (*models.User, error) {
	return s.repo.GetByID(id)
}

// Users returns the full user collection.
func (s *SessionStore) Users() ([]models.User, error) {
	return s.repo.List()
}

// SeedAdmin guarantees the default administrator account exists. It is
// idempotent: re-running startup does not create duplicates.
func (s *SessionStore) SeedAdmin() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, err := s.repo.GetByEmail(AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	if _, err := s.createUser(adminName, AdminEmail, adminPassword, true); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.notify()
	return nil
}

// createUser assigns the next id (max existing id + 1, or 1 on an empty
// collection), hashes the password per the credential scheme and persists
// the user. It returns a copy of the stored record.
func (s *SessionStore) createUser(name, email, password string, isAdmin bool) (*models.User, error) {
	users, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	nextID := 1
	for _, u := range users {
		if u.ID >= nextID {
			nextID = u.ID + 1
		}
	}

	hashed, err := s.creds.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	user := &models.User{
		ID:        nextID,
		Name:      name,
		Email:     email,
		Password:  hashed,
		IsAdmin:   isAdmin,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
