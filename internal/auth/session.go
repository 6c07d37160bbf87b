// Package auth provides the authentication capability consumed by the sync
// core: a current user, a bearer token, and login/logout. The backend owns
// credential verification; this package only attributes local writes and
// persists the session between runs.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/alerta-utec/campuswatch/internal/domain"
)

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Authenticator verifies credentials and issues a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.User, string, error)
}

// sessionState is the on-disk form of a persisted session.
type sessionState struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Session holds the authenticated user and token for this process and
// persists them to a state file so a restart resumes the session.
type Session struct {
	mu        sync.RWMutex
	statePath string
	logger    *slog.Logger

	token string
	user  *domain.User
}

// NewSession creates a session, restoring persisted state from statePath
// if present. A corrupt state file is removed and logged, not fatal.
func NewSession(statePath string, logger *slog.Logger) *Session {
	s := &Session{statePath: statePath, logger: logger}
	s.restore()
	return s
}

// Token returns the current bearer token, or empty if logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns the authenticated user, if any.
func (s *Session) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether a usable session exists. Tokens that carry
// a JWT expiry claim are checked against the clock; opaque tokens are
// trusted until the backend rejects them.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.user == nil {
		return false
	}
	return !TokenExpired(s.token)
}

// Login verifies credentials through the authenticator and stores the
// resulting session.
func (s *Session) Login(ctx context.Context, a Authenticator, email, password string) error {
	user, token, err := a.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	s.persist()
	return nil
}

// Logout clears the session and removes the persisted state.
func (s *Session) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if s.statePath == "" {
		return
	}
	if err := os.Remove(s.statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove session state", "path", s.statePath, "error", err)
	}
}

func (s *Session) restore() {
	if s.statePath == "" {
		return
	}

	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read session state", "path", s.statePath, "error", err)
		}
		return
	}

	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil || state.Token == "" {
		s.logger.Warn("discarding corrupt session state", "path", s.statePath)
		_ = os.Remove(s.statePath)
		return
	}

	s.token = state.Token
	s.user = &state.User
}

func (s *Session) persist() {
	if s.statePath == "" {
		return
	}

	s.mu.RLock()
	state := sessionState{Token: s.token}
	if s.user != nil {
		state.User = *s.user
	}
	s.mu.RUnlock()

	data, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("failed to encode session state", "error", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.statePath), 0o700); err != nil {
		s.logger.Warn("failed to create session state dir", "error", err)
		return
	}
	if err := os.WriteFile(s.statePath, data, 0o600); err != nil {
		s.logger.Warn("failed to write session state", "path", s.statePath, "error", err)
	}
}
