// Package sessionstore contains durable backends for the session record.
//
// Every backend keeps exactly one record under a key (DefaultKey unless WithKey used).
// Records are JSON encoded and sealed when a Sealer is given.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/models"
)

const DefaultKey = "auth-storage"

// Storage kinds
const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindBolt     = "bolt"
	KindPostgres = "postgres"
	KindRedis    = "redis"
)

type Store interface {
	// Load the record
	// Must return apperrors.ErrSessionNotFound if nothing saved and apperrors.ErrSessionCorrupt if the record can't be read
	Load(ctx context.Context) (models.Session, error)

	Save(ctx context.Context, s models.Session) error

	// Release resources owned by the store
	Close() error
}

type options struct {
	key    string
	sealer *Sealer
}

type Option func(*options)

func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

// Seal records at rest, nil disables sealing
func WithSealer(s *Sealer) Option {
	return func(o *options) {
		o.sealer = s
	}
}

func newOptions(opts []Option) options {
	o := options{key: DefaultKey}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) encode(s models.Session) ([]byte, error) {
	data, err := json.Marshal(s.Normalize())
	if err != nil {
		return nil, fmt.Errorf("can't encode session. Err: %w", err)
	}
	if o.sealer != nil {
		return o.sealer.Seal(data)
	}
	return data, nil
}

func (o options) decode(data []byte) (models.Session, error) {
	if o.sealer != nil {
		plain, err := o.sealer.Open(data)
		if err != nil {
			return models.Session{}, fmt.Errorf("%w: %w", apperrors.ErrSessionCorrupt, err)
		}
		data = plain
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Session{}, fmt.Errorf("%w: %w", apperrors.ErrSessionCorrupt, err)
	}
	return s.Normalize(), nil
}
