// Package auth drives the token lifecycle of the current user.
//
// Manager logs in with Telegram init data, refreshes tokens when the backend
// rejects the access token, and cleans up on logout or account deletion.
// It implements transport.Refresher so protected calls refresh through it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/initdata"
	"github.com/nkiryanov/miniappauth/internal/logger"
	"github.com/nkiryanov/miniappauth/internal/models"
	"github.com/nkiryanov/miniappauth/internal/session"
	"github.com/nkiryanov/miniappauth/internal/transport"
)

// Backend calls the manager relies on, implemented by authapi.API
type API interface {
	TelegramAuth(ctx context.Context, initData string) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context) error

	// With noRefresh the transport must return 401 as is
	GetMe(ctx context.Context, noRefresh bool) (models.User, error)
	DeleteMe(ctx context.Context) error
}

var _ transport.Refresher = (*Manager)(nil)

type Option func(*Manager)

func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

type Manager struct {
	api     API
	session *session.Session
	logger  logger.Logger

	observer Observer

	// Guards state and lastError
	mu        sync.Mutex
	state     State
	lastError string

	// Serializes refreshes: the backend rotates refresh tokens and accepts each one once
	refreshMu sync.Mutex
}

func New(api API, s *session.Session, l logger.Logger, opts ...Option) (*Manager, error) {
	if api == nil || s == nil {
		return nil, errors.New("api and session must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	m := &Manager{
		api:     api,
		session: s,
		logger:  l,
		state:   StateAnonymous,
	}
	if s.IsAuthenticated() {
		m.state = StateAuthenticated
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Last error message to show to the user, empty if the last operation went fine
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

func (m *Manager) Session() models.SessionSnapshot {
	return m.session.Snapshot()
}

func (m *Manager) User() (models.User, bool) {
	return m.session.User()
}

// LoginWithTelegram exchanges init data for tokens and loads the user
// Failed user fetch does not fail the login, it is left in LastError
func (m *Manager) LoginWithTelegram(ctx context.Context, initData string) error {
	if strings.TrimSpace(initData) == "" {
		m.setLastError("Telegram init data is empty")
		return apperrors.ErrEmptyInitData
	}

	log := m.logger
	if data, err := initdata.Parse(initData); err == nil && data.User != nil {
		log = log.With("telegram_id", data.TelegramID())
	}

	m.transition(StateAuthenticating)
	m.setLastError("")

	pair, err := m.api.TelegramAuth(ctx, initData)
	if err != nil {
		log.Warn("Telegram login failed", "error", err)
		m.setLastError(messageOf(err, "Authentication failed"))
		m.transition(m.restingState())
		return fmt.Errorf("login with telegram. Err: %w", err)
	}

	m.storeTokens(ctx, pair)
	m.transition(StateAuthenticated)
	log.Info("Logged in with Telegram")

	if err := m.FetchCurrentUser(ctx); err != nil {
		log.Warn("User not fetched after login", "error", err)
	}

	return nil
}

// FetchCurrentUser loads the user profile if an access token is held
// On 401 it refreshes once and retries once
func (m *Manager) FetchCurrentUser(ctx context.Context) error {
	if m.session.AccessToken() == "" {
		return nil
	}

	user, err := m.api.GetMe(ctx, true)
	if errors.Is(err, apperrors.ErrUnauthorized) {
		m.logger.Debug("Access token rejected, refresh and retry user fetch")

		if refreshErr := m.RefreshTokens(ctx); refreshErr != nil {
			if errors.Is(refreshErr, apperrors.ErrNoRefreshToken) {
				m.setLastError(messageOf(err, "Failed to load user"))
			}
			return fmt.Errorf("fetch user: %w", err)
		}
		user, err = m.api.GetMe(ctx, true)
	}

	if err != nil {
		m.setLastError(messageOf(err, "Failed to load user"))
		return fmt.Errorf("fetch user: %w", err)
	}

	m.session.SetUser(user)
	m.setLastError("")
	return nil
}

// RefreshTokens replaces the token pair using the refresh token
//
// Without refresh token returns apperrors.ErrNoRefreshToken and changes nothing.
// Any failure clears the session: the user has to log in again.
// Callers that waited for a concurrent refresh reuse its result.
func (m *Manager) RefreshTokens(ctx context.Context) error {
	seen := m.session.RefreshToken()

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	current := m.session.RefreshToken()
	if current == "" {
		return apperrors.ErrNoRefreshToken
	}
	if seen != "" && seen != current {
		m.logger.Debug("Tokens rotated by concurrent refresh, reuse them")
		return nil
	}

	m.transition(StateRefreshing)

	pair, err := m.api.Refresh(ctx, current)
	if err != nil {
		m.logger.Warn("Refresh failed, drop session", "error", err)
		m.clearLocal(ctx)
		m.setLastError("Session expired, please log in again")
		return fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}

	m.storeTokens(ctx, pair)
	m.transition(StateAuthenticated)
	m.logger.Debug("Tokens refreshed")
	return nil
}

// Logout invalidates the refresh token on the server if possible and always clears the session
func (m *Manager) Logout(ctx context.Context) error {
	if rt := m.session.RefreshToken(); rt != "" {
		if err := m.api.Logout(ctx, rt); err != nil {
			m.logger.Warn("Server logout failed, clear session anyway", "error", err)
		}
	}

	m.clearLocal(ctx)
	m.setLastError("")
	m.logger.Info("Logged out")
	return nil
}

// LogoutAll ends all sessions of the user, the local one is cleared even if the server call failed
func (m *Manager) LogoutAll(ctx context.Context) error {
	if !m.session.IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}

	serverErr := m.api.LogoutAll(ctx)
	if serverErr != nil {
		m.logger.Warn("Server logout from all devices failed, clear session anyway", "error", serverErr)
	}

	m.clearLocal(ctx)

	if serverErr != nil {
		m.setLastError(messageOf(serverErr, "Failed to log out from all devices"))
		return fmt.Errorf("logout all. Err: %w", serverErr)
	}

	m.setLastError("")
	m.logger.Info("Logged out from all devices")
	return nil
}

// DeleteAccount removes the account and logs out
// On failure the session stays as is and the error goes to LastError
func (m *Manager) DeleteAccount(ctx context.Context) error {
	if !m.session.IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}

	if err := m.api.DeleteMe(ctx); err != nil {
		m.logger.Warn("Account deletion failed", "error", err)
		m.setLastError(messageOf(err, "Failed to delete account"))
		return fmt.Errorf("delete account. Err: %w", err)
	}

	m.logger.Info("Account deleted")
	return m.Logout(ctx)
}

// Restore brings the restored session to a usable state on start:
// loads the user for a held token or logs in with init data if there is none
func (m *Manager) Restore(ctx context.Context, initData string) error {
	if m.session.IsAuthenticated() {
		if _, ok := m.session.User(); ok {
			return nil
		}
		return m.FetchCurrentUser(ctx)
	}

	if strings.TrimSpace(initData) == "" {
		return nil
	}
	return m.LoginWithTelegram(ctx, initData)
}

func (m *Manager) storeTokens(ctx context.Context, pair models.TokenPair) {
	// Tokens are in memory even if persisting failed, the session keeps working
	if err := m.session.SetTokens(ctx, pair); err != nil {
		m.logger.Error("Tokens not persisted", "error", err)
	}
}

func (m *Manager) clearLocal(ctx context.Context) {
	if err := m.session.Clear(ctx); err != nil {
		m.logger.Error("Cleared session not persisted", "error", err)
	}
	m.transition(StateLoggedOut)
	m.transition(StateAnonymous)
}

// restingState matches the held session: a failed attempt keeps the tokens it had
func (m *Manager) restingState() State {
	if m.session.IsAuthenticated() {
		return StateAuthenticated
	}
	return StateAnonymous
}

func (m *Manager) transition(to State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()

	if from == to {
		return
	}

	m.logger.Debug("Auth state changed", "from", from, "to", to)
	if m.observer != nil {
		m.observer(from, to)
	}
}

func (m *Manager) setLastError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = msg
}

// messageOf picks the text to show for err
func messageOf(err error, fallback string) string {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return fallback
}
