// Package session keeps the credentials of the current user and persists them.
//
// Session is the single owner of the token state. Collaborators get it explicitly:
// the transport reads the access token from it, the lifecycle manager mutates it.
// Every change of the tokens is written to Storage, the user profile is memory only.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/logger"
	"github.com/nkiryanov/miniappauth/internal/models"
)

// Durable storage of the session record
type Storage interface {
	// Load persisted session
	// Has to return apperrors.ErrSessionNotFound if nothing stored yet
	Load(ctx context.Context) (models.Session, error)

	// Save session replacing previous one
	Save(ctx context.Context, s models.Session) error
}

type Session struct {
	mu sync.RWMutex

	data            models.Session
	accessExpiresAt time.Time
	user            *models.User

	storage Storage
	logger  logger.Logger
	now     func() time.Time
}

// New restores session from storage or starts an empty one
// Corrupted records are dropped: the user has to log in again
func New(ctx context.Context, storage Storage, l logger.Logger) (*Session, error) {
	if storage == nil {
		return nil, errors.New("session storage must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	s := &Session{
		storage: storage,
		logger:  l,
		now:     time.Now,
	}

	data, err := storage.Load(ctx)
	switch {
	case err == nil:
		s.data = data.Normalize()
		s.accessExpiresAt = accessExpiry(s.data.AccessToken)
		l.Debug("Session restored", "is_authenticated", s.data.IsAuthenticated)
	case errors.Is(err, apperrors.ErrSessionNotFound):
		l.Debug("No stored session, start anonymous")
	case errors.Is(err, apperrors.ErrSessionCorrupt):
		l.Warn("Stored session is corrupt, start anonymous", "error", err)
	default:
		return nil, fmt.Errorf("can't load session. Err: %w", err)
	}

	return s, nil
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.RefreshToken
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.IsAuthenticated
}

// AccessExpired reports whether the access token expires within skew
// Tokens without known expiry are never considered expired
func (s *Session) AccessExpired(skew time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.AccessToken == "" || s.accessExpiresAt.IsZero() {
		return false
	}
	return !s.now().Add(skew).Before(s.accessExpiresAt)
}

// SetTokens replaces both tokens and persists the session
// The in-memory state is updated even if persisting fails
func (s *Session) SetTokens(ctx context.Context, pair models.TokenPair) error {
	if pair.Access == "" || pair.Refresh == "" {
		return errors.New("both access and refresh tokens required")
	}

	s.mu.Lock()
	s.data = models.Session{
		AccessToken:     pair.Access,
		RefreshToken:    pair.Refresh,
		IsAuthenticated: true,
	}
	s.accessExpiresAt = accessExpiry(pair.Access)
	data := s.data
	s.mu.Unlock()

	return s.persist(ctx, data)
}

// SetUser replaces the user profile, never persisted
func (s *Session) SetUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Clear drops tokens and user and persists the empty session
// The in-memory state is cleared even if persisting fails
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.data = models.Session{}
	s.accessExpiresAt = time.Time{}
	s.user = nil
	s.mu.Unlock()

	return s.persist(ctx, models.Session{})
}

func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.SessionSnapshot{
		Session:         s.data,
		AccessExpiresAt: s.accessExpiresAt,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Session) persist(ctx context.Context, data models.Session) error {
	if err := s.storage.Save(ctx, data); err != nil {
		s.logger.Error("Failed to persist session", "error", err)
		return fmt.Errorf("can't persist session. Err: %w", err)
	}
	return nil
}
