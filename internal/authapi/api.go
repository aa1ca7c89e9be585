// Package authapi holds typed calls to the backend auth and user endpoints.
package authapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nkiryanov/miniappauth/internal/models"
	"github.com/nkiryanov/miniappauth/internal/transport"
)

const (
	PathTelegramAuth = "/auth/telegram"
	PathRefresh      = "/auth/refresh"
	PathLogout       = "/auth/logout"
	PathLogoutAll    = "/auth/logout-all"
	PathMe           = "/users/me"
)

type doer interface {
	Do(ctx context.Context, r transport.Request, out any) error
}

type API struct {
	client doer
}

func New(client doer) *API {
	return &API{client: client}
}

type telegramAuthRequest struct {
	InitData string `json:"initData"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// Exchange Telegram init data for a token pair
func (a *API) TelegramAuth(ctx context.Context, initData string) (models.TokenPair, error) {
	var pair models.TokenPair
	err := a.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   PathTelegramAuth,
		Body:   telegramAuthRequest{InitData: initData},
		Public: true,
	}, &pair)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("telegram auth: %w", err)
	}
	return pair, nil
}

// Exchange refresh token for a new pair
// Sent without bearer: the access token is likely the reason we are here
func (a *API) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	var pair models.TokenPair
	err := a.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   PathRefresh,
		Body:   refreshRequest{RefreshToken: refreshToken},
		Public: true,
	}, &pair)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh tokens: %w", err)
	}
	return pair, nil
}

// Invalidate refresh token on the server
// Bearer is sent if held, 401 is never refreshed
func (a *API) Logout(ctx context.Context, refreshToken string) error {
	var resp successResponse
	err := a.client.Do(ctx, transport.Request{
		Method:    http.MethodPost,
		Path:      PathLogout,
		Body:      refreshRequest{RefreshToken: refreshToken},
		NoRefresh: true,
	}, &resp)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Invalidate all refresh tokens of the user
func (a *API) LogoutAll(ctx context.Context) error {
	var resp successResponse
	err := a.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   PathLogoutAll,
	}, &resp)
	if err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	return nil
}

// GetMe fetches the current user
// With noRefresh the caller takes care of 401 itself
func (a *API) GetMe(ctx context.Context, noRefresh bool) (models.User, error) {
	var user models.User
	err := a.client.Do(ctx, transport.Request{
		Method:    http.MethodGet,
		Path:      PathMe,
		NoRefresh: noRefresh,
	}, &user)
	if err != nil {
		return models.User{}, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

// Delete account of the current user
func (a *API) DeleteMe(ctx context.Context) error {
	var resp successResponse
	err := a.client.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   PathMe,
	}, &resp)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
