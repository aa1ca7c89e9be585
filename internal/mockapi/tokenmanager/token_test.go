package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
)

func Test_TokenManager(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	userID := "7f0c4b9e-3f0a-4a52-9d43-3b7f1d7e1a10"

	newManager := func(t *testing.T, clock *time.Time) *TokenManager {
		m, err := New(Config{
			SecretKey:  "test-secret-key",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			Now:        func() time.Time { return *clock },
		}, NewMemoryRepo())
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{SecretKey: "secret"}, nil)
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new fails", func(t *testing.T) {
		_, err := New(Config{}, nil)
		require.Error(t, err, "secret key is required")

		_, err = New(Config{SecretKey: "secret", Alg: "none-such"}, nil)
		require.Error(t, err, "unknown algorithm")
	})

	t.Run("GeneratePair", func(t *testing.T) {
		t.Run("access claims", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)

			pair, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)

			claims := &AccessTokenClaims{}
			_, _, err = jwt.NewParser().ParseUnverified(pair.Access, claims)
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID, "user ID in token should match")
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.WithinDuration(t, now.Add(15*time.Minute), claims.ExpiresAt.Time, 0)
			assert.Len(t, pair.Refresh, 32, "refresh token is 16 random bytes in hex")
		})

		t.Run("generate different tokens", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)

			pair1, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)
			pair2, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)

			assert.NotEqual(t, pair1.Refresh, pair2.Refresh, "refresh tokens should be different")
			assert.NotEqual(t, pair1.Access, pair2.Access, "access tokens should be different")
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("valid", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)
			pair, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)

			got, err := m.ParseAccess(t.Context(), pair.Access)

			require.NoError(t, err)
			require.Equal(t, userID, got)
		})

		t.Run("expired", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)
			pair, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)

			clock = now.Add(time.Hour)
			_, err = m.ParseAccess(t.Context(), pair.Access)

			require.ErrorIs(t, err, jwt.ErrTokenExpired)
		})

		t.Run("foreign signature", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)
			other, err := New(Config{SecretKey: "other", Now: func() time.Time { return now }}, NewMemoryRepo())
			require.NoError(t, err)
			pair, err := other.GeneratePair(t.Context(), userID)
			require.NoError(t, err)

			_, err = m.ParseAccess(t.Context(), pair.Access)

			require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
		})
	})

	t.Run("UseRefresh", func(t *testing.T) {
		t.Run("single use", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)
			pair, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)

			token, err := m.UseRefresh(t.Context(), pair.Refresh)
			require.NoError(t, err)
			require.Equal(t, userID, token.UserID)

			_, err = m.UseRefresh(t.Context(), pair.Refresh)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenIsUsed)
		})

		t.Run("unknown", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)

			_, err := m.UseRefresh(t.Context(), "not-issued")

			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})

		t.Run("expired", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)
			pair, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)

			clock = now.Add(25 * time.Hour)
			_, err = m.UseRefresh(t.Context(), pair.Refresh)

			require.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)
		})

		t.Run("revoked", func(t *testing.T) {
			clock := now
			m := newManager(t, &clock)
			pair1, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)
			pair2, err := m.GeneratePair(t.Context(), userID)
			require.NoError(t, err)

			err = m.RevokeUser(t.Context(), userID)
			require.NoError(t, err)

			_, err = m.UseRefresh(t.Context(), pair1.Refresh)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenIsUsed)
			_, err = m.UseRefresh(t.Context(), pair2.Refresh)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenIsUsed)
		})
	})
}
