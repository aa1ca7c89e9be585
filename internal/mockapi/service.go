package mockapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/initdata"
	"github.com/nkiryanov/miniappauth/internal/mockapi/tokenmanager"
	"github.com/nkiryanov/miniappauth/internal/models"
)

var errNoTelegramUser = errors.New("init data has no user")

type userStore interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	Save(ctx context.Context, u models.User) error
	Delete(ctx context.Context, id string) error
}

type service struct {
	users  userStore
	tokens *tokenmanager.TokenManager
	now    func() time.Time
}

// TelegramAuth trusts init data as is, signature is not checked
// Known telegram users are updated, unknown ones are created
func (s *service) TelegramAuth(ctx context.Context, raw string) (models.TokenPair, error) {
	data, err := initdata.Parse(raw)
	if err != nil {
		return models.TokenPair{}, err
	}
	if data.User == nil || data.User.ID == 0 {
		return models.TokenPair{}, errNoTelegramUser
	}

	now := s.now().UTC()
	user, err := s.users.GetByTelegramID(ctx, data.User.ID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		user = models.User{
			ID:         uuid.NewString(),
			TelegramID: data.User.ID,
			CreatedAt:  now,
		}
	case err != nil:
		return models.TokenPair{}, fmt.Errorf("get user by telegram id. Err: %w", err)
	}
	user.Username = data.User.Username
	user.FirstName = data.User.FirstName
	user.LastName = data.User.LastName
	user.PhotoURL = data.User.PhotoURL
	user.AuthDate = data.AuthDate.Unix()
	if data.AuthDate.IsZero() {
		user.AuthDate = now.Unix()
	}
	user.UpdatedAt = now

	if err := s.users.Save(ctx, user); err != nil {
		return models.TokenPair{}, fmt.Errorf("save user. Err: %w", err)
	}

	return s.tokens.GeneratePair(ctx, user.ID)
}

func (s *service) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.tokens.UseRefresh(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	if _, err := s.users.GetByID(ctx, token.UserID); err != nil {
		return models.TokenPair{}, err
	}

	return s.tokens.GeneratePair(ctx, token.UserID)
}

func (s *service) Logout(ctx context.Context, refresh string) error {
	_, err := s.tokens.UseRefresh(ctx, refresh)
	return err
}

func (s *service) LogoutAll(ctx context.Context, userID string) error {
	return s.tokens.RevokeUser(ctx, userID)
}

// Authenticate accepts access tokens of existing users only
func (s *service) Authenticate(ctx context.Context, access string) (string, error) {
	userID, err := s.tokens.ParseAccess(ctx, access)
	if err != nil {
		return "", err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *service) Me(ctx context.Context, userID string) (models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *service) DeleteMe(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	return s.tokens.RevokeUser(ctx, userID)
}
