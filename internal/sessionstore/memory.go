package sessionstore

import (
	"context"
	"sync"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/models"
)

// Memory keeps the record for the process lifetime only
type Memory struct {
	mu    sync.Mutex
	saved bool
	data  models.Session
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.saved {
		return models.Session{}, apperrors.ErrSessionNotFound
	}
	return m.data, nil
}

func (m *Memory) Save(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = s.Normalize()
	m.saved = true
	return nil
}

func (m *Memory) Close() error {
	return nil
}
