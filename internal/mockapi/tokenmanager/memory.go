package tokenmanager

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
)

// In-memory RefreshRepo, the mock backend keeps nothing on disk
type MemoryRepo struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tokens: make(map[string]RefreshToken)}
}

func (r *MemoryRepo) Save(_ context.Context, token RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.Token] = token
	return nil
}

func (r *MemoryRepo) GetAndMarkUsed(_ context.Context, tokenString string, usedAt time.Time) (RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenString]
	switch {
	case !ok:
		return token, apperrors.ErrRefreshTokenNotFound
	case token.UsedAt != nil:
		return token, apperrors.ErrRefreshTokenIsUsed
	}

	token.UsedAt = &usedAt
	r.tokens[tokenString] = token
	return token, nil
}

func (r *MemoryRepo) MarkUserTokensUsed(_ context.Context, userID string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, token := range r.tokens {
		if token.UserID == userID && token.UsedAt == nil {
			token.UsedAt = &usedAt
			r.tokens[k] = token
		}
	}
	return nil
}
