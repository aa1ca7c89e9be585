package mockapi

import (
	"context"
	"sync"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/models"
)

// In-memory users indexed by id and telegram id
type userRepo struct {
	mu         sync.RWMutex
	byID       map[string]models.User
	byTelegram map[int64]string
}

func newUserRepo() *userRepo {
	return &userRepo{
		byID:       make(map[string]models.User),
		byTelegram: make(map[int64]string),
	}
}

func (r *userRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return u, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepo) GetByTelegramID(_ context.Context, telegramID int64) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byTelegram[telegramID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return r.byID[id], nil
}

// Save creates or replaces the user
func (r *userRepo) Save(_ context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[u.ID] = u
	r.byTelegram[u.TelegramID] = u.ID
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byTelegram, u.TelegramID)
	return nil
}

func (r *userRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
