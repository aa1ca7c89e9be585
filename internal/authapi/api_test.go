package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/models"
	"github.com/nkiryanov/miniappauth/internal/transport"
)

// Allow to use a function as transport
type doFunc func(ctx context.Context, r transport.Request, out any) error

func (f doFunc) Do(ctx context.Context, r transport.Request, out any) error {
	return f(ctx, r, out)
}

// Fill out with JSON as the real transport does
func respond(t *testing.T, out any, data string) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(data), out))
}

func TestAPI(t *testing.T) {
	t.Run("TelegramAuth", func(t *testing.T) {
		var got transport.Request
		api := New(doFunc(func(ctx context.Context, r transport.Request, out any) error {
			got = r
			respond(t, out, `{"access_token": "a1", "refresh_token": "r1"}`)
			return nil
		}))

		pair, err := api.TelegramAuth(t.Context(), "query_id=1&hash=abc")

		require.NoError(t, err)
		require.Equal(t, models.TokenPair{Access: "a1", Refresh: "r1"}, pair)
		require.Equal(t, http.MethodPost, got.Method)
		require.Equal(t, "/auth/telegram", got.Path)
		require.True(t, got.Public, "login must not send bearer")

		body, err := json.Marshal(got.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"initData": "query_id=1&hash=abc"}`, string(body))
	})

	t.Run("Refresh", func(t *testing.T) {
		var got transport.Request
		api := New(doFunc(func(ctx context.Context, r transport.Request, out any) error {
			got = r
			respond(t, out, `{"access_token": "a2", "refresh_token": "r2"}`)
			return nil
		}))

		pair, err := api.Refresh(t.Context(), "r1")

		require.NoError(t, err)
		require.Equal(t, models.TokenPair{Access: "a2", Refresh: "r2"}, pair)
		require.Equal(t, "/auth/refresh", got.Path)
		require.True(t, got.Public, "refresh must never trigger refresh itself")

		body, err := json.Marshal(got.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"refresh_token": "r1"}`, string(body))
	})

	t.Run("Logout", func(t *testing.T) {
		var got transport.Request
		api := New(doFunc(func(ctx context.Context, r transport.Request, out any) error {
			got = r
			respond(t, out, `{"success": true}`)
			return nil
		}))

		err := api.Logout(t.Context(), "r1")

		require.NoError(t, err)
		require.Equal(t, http.MethodPost, got.Method)
		require.Equal(t, "/auth/logout", got.Path)
		require.False(t, got.Public, "logout sends bearer")
		require.True(t, got.NoRefresh, "logout must not trigger refresh")
	})

	t.Run("LogoutAll", func(t *testing.T) {
		var got transport.Request
		api := New(doFunc(func(ctx context.Context, r transport.Request, out any) error {
			got = r
			return nil
		}))

		err := api.LogoutAll(t.Context())

		require.NoError(t, err)
		require.Equal(t, "/auth/logout-all", got.Path)
		require.False(t, got.Public, "logout-all is a protected call")
	})

	t.Run("GetMe", func(t *testing.T) {
		var got transport.Request
		api := New(doFunc(func(ctx context.Context, r transport.Request, out any) error {
			got = r
			respond(t, out, `{
				"id": "6f1c1f0e-0d5b-4c57-9a32-3f4dbf1f1a10",
				"telegram_id": 279058397,
				"username": "vdkfrost",
				"first_name": "Vladislav",
				"auth_date": 1662771648,
				"created_at": "2024-01-01T19:00:01Z",
				"updated_at": "2024-01-02T19:00:01Z"
			}`)
			return nil
		}))

		user, err := api.GetMe(t.Context(), true)

		require.NoError(t, err)
		require.Equal(t, http.MethodGet, got.Method)
		require.Equal(t, "/users/me", got.Path)
		require.True(t, got.NoRefresh)
		require.Equal(t, int64(279058397), user.TelegramID)
		require.Equal(t, "Vladislav", user.DisplayName())
	})

	t.Run("DeleteMe", func(t *testing.T) {
		var got transport.Request
		api := New(doFunc(func(ctx context.Context, r transport.Request, out any) error {
			got = r
			return nil
		}))

		err := api.DeleteMe(t.Context())

		require.NoError(t, err)
		require.Equal(t, http.MethodDelete, got.Method)
		require.Equal(t, "/users/me", got.Path)
	})

	t.Run("errors wrapped", func(t *testing.T) {
		api := New(doFunc(func(ctx context.Context, r transport.Request, out any) error {
			return &transport.APIError{Kind: transport.KindUnauthorized, Status: http.StatusUnauthorized}
		}))

		_, err := api.GetMe(t.Context(), false)

		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		var apiErr *transport.APIError
		require.True(t, errors.As(err, &apiErr), "api error should be reachable through wrapping")
	})
}
