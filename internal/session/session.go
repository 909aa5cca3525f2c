// Package session owns the single client-side bearer credential.
//
// A [Store] is created once per process, reads the persisted slot on construction, and is passed to
// whichever component needs the credential. The gateway reads it through Token and discards it through Clear.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// Authenticator performs the remote login and register calls.
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.Credentials, error)
	Register(ctx context.Context, req models.RegisterRequest) error
}

// Persister stores the credential between runs.
type Persister interface {
	Save(token string, expiry time.Time) error
	Load() (token string, expiry time.Time, ok bool, err error)
	Clear() error
}

// StoreOpts configures a [Store]. Only Auth is required.
type StoreOpts struct {
	Auth      Authenticator
	Persister Persister
	Notifier  shared.Notifier
	Logger    *log.Logger
	Now       func() time.Time
}

// Store holds the current credential.
type Store struct {
	auth      Authenticator
	persister Persister
	notifier  shared.Notifier
	logger    *log.Logger
	now       func() time.Time

	mu            sync.RWMutex
	token         string
	expiry        time.Time
	authenticated bool
}

// NewStore reads the persisted slot once and marks the store authenticated when a token is present.
func NewStore(opts StoreOpts) *Store {
	s := &Store{
		auth:      opts.Auth,
		persister: opts.Persister,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.persister == nil {
		s.persister = &MemoryPersister{}
	}
	if s.notifier == nil {
		s.notifier = shared.NopNotifier{}
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.now == nil {
		s.now = time.Now
	}

	token, expiry, ok, err := s.persister.Load()
	if err != nil {
		s.logger.Warn("failed to load persisted session", "error", err)
	}
	if ok && token != "" {
		s.token, s.expiry, s.authenticated = token, expiry, true
	}
	return s
}

// SetAuthenticator installs the remote authenticator after construction.
func (s *Store) SetAuthenticator(a Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = a
}

// Login validates req, calls the server and persists the returned token.
//
// It reports false on validation failure, transport or server failure, or a response without a usable token and expiry.
func (s *Store) Login(ctx context.Context, req models.LoginRequest) bool {
	if err := req.Validate(); err != nil {
		s.notifier.Error(err.Error())
		return false
	}

	s.mu.RLock()
	auth := s.auth
	s.mu.RUnlock()
	if auth == nil {
		s.notifier.Error(shared.ErrMissingConfig.Error())
		return false
	}

	creds, err := auth.Login(ctx, req)
	if err != nil {
		s.logger.Debug("login failed", "username", req.Username, "error", err)
		s.notifier.Error("Login failed: " + err.Error())
		return false
	}
	if creds == nil || creds.AccessToken == "" {
		s.notifier.Error("Login failed: no access token in response")
		return false
	}

	expiry, err := shared.ParseTime(creds.Expiration)
	if err != nil {
		s.notifier.Error("Login failed: " + err.Error())
		return false
	}

	if err := s.persister.Save(creds.AccessToken, expiry); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}

	s.mu.Lock()
	s.token, s.expiry, s.authenticated = creds.AccessToken, expiry, true
	s.mu.Unlock()

	s.logger.Info("logged in", "username", req.Username, "expires", expiry)
	s.notifier.Success("Logged in")
	return true
}

// Register validates req and creates the account. It does not log in.
func (s *Store) Register(ctx context.Context, req models.RegisterRequest) bool {
	if err := req.Validate(); err != nil {
		s.notifier.Error(err.Error())
		return false
	}

	s.mu.RLock()
	auth := s.auth
	s.mu.RUnlock()
	if auth == nil {
		s.notifier.Error(shared.ErrMissingConfig.Error())
		return false
	}

	if err := auth.Register(ctx, req); err != nil {
		s.logger.Debug("register failed", "username", req.Username, "error", err)
		s.notifier.Error("Registration failed: " + err.Error())
		return false
	}

	s.notifier.Success("Account created, please log in")
	return true
}

// Logout clears the credential. It never fails.
func (s *Store) Logout() {
	if err := s.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted session", "error", err)
	}
}

// Clear discards the in-memory and persisted credential.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token, s.expiry, s.authenticated = "", time.Time{}, false
	s.mu.Unlock()
	return s.persister.Clear()
}

// Token returns the credential, or nil when there is none or it is past its expiry.
func (s *Store) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return nil
	}
	if !s.expiry.IsZero() && !s.now().Before(s.expiry) {
		return nil
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer", Expiry: s.expiry}
}

// HasToken reports whether a token is held, without checking its expiry.
func (s *Store) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Authenticated is the flag set at construction and by login and logout.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Expiry returns when the held token expires.
func (s *Store) Expiry() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry
}

// MemoryPersister keeps the credential for the life of the process.
type MemoryPersister struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
}

func (m *MemoryPersister) Save(token string, expiry time.Time) error {
	if token == "" {
		return errors.New("empty token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.expiry = token, expiry
	return nil
}

func (m *MemoryPersister) Load() (string, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.expiry, m.token != "", nil
}

func (m *MemoryPersister) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.expiry = "", time.Time{}
	return nil
}
