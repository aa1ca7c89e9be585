package mockapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/initdata"
	"github.com/nkiryanov/miniappauth/internal/mockapi/tokenmanager"
	"github.com/nkiryanov/miniappauth/internal/models"
)

// Repo that fails telegram id lookups, everything else goes to memory
type brokenUsers struct {
	*userRepo
	err error
}

func (r *brokenUsers) GetByTelegramID(context.Context, int64) (models.User, error) {
	return models.User{}, r.err
}

func TestService_TelegramAuth(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	newService := func(t *testing.T, users userStore) *service {
		tokens, err := tokenmanager.New(tokenmanager.Config{
			SecretKey: "test-secret-key",
			Now:       func() time.Time { return now },
		}, tokenmanager.NewMemoryRepo())
		require.NoError(t, err)

		return &service{users: users, tokens: tokens, now: func() time.Time { return now }}
	}

	raw, err := initdata.Encode(initdata.Data{
		AuthDate: now,
		User:     &initdata.User{ID: 279058397, FirstName: "Vladislav", Username: "vdkfrost"},
	})
	require.NoError(t, err)

	t.Run("unknown user created", func(t *testing.T) {
		users := newUserRepo()
		svc := newService(t, users)

		pair, err := svc.TelegramAuth(t.Context(), raw)

		require.NoError(t, err)
		require.NotEmpty(t, pair.Access)
		require.Equal(t, 1, users.Count())

		user, err := users.GetByTelegramID(t.Context(), 279058397)
		require.NoError(t, err)
		require.Equal(t, "vdkfrost", user.Username)
		require.Equal(t, now, user.CreatedAt)
	})

	t.Run("lookup failure not treated as new user", func(t *testing.T) {
		users := &brokenUsers{userRepo: newUserRepo(), err: errors.New("storage is down")}
		svc := newService(t, users)

		_, err := svc.TelegramAuth(t.Context(), raw)

		require.Error(t, err)
		require.NotErrorIs(t, err, apperrors.ErrUserNotFound)
		require.Zero(t, users.Count(), "no user must be created when lookup failed")
	})
}
