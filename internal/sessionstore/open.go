package sessionstore

import (
	"context"
	"fmt"

	"github.com/nkiryanov/miniappauth/internal/db"
)

type Config struct {
	// One of Kind* constants
	Kind string

	// File path for file and bolt kinds
	Path string

	DatabaseURI string
	RedisURL    string

	// Record key, DefaultKey if empty
	Key string

	// Seal records when set
	SecretKey string
}

// Open creates the store of configured kind
// Postgres schema is migrated on open
func Open(ctx context.Context, cfg Config) (Store, error) {
	opts := []Option{WithKey(cfg.Key)}
	if cfg.SecretKey != "" {
		sealer, err := NewSealer(cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSealer(sealer))
	}

	switch cfg.Kind {
	case KindMemory:
		return NewMemory(), nil
	case KindFile:
		return NewFile(cfg.Path, opts...)
	case KindBolt:
		return NewBolt(cfg.Path, opts...)
	case KindPostgres:
		pool, err := db.ConnectAndMigrate(ctx, cfg.DatabaseURI)
		if err != nil {
			return nil, fmt.Errorf("can't connect to postgres. Err: %w", err)
		}
		store := NewPostgres(pool, opts...)
		store.closeFn = pool.Close
		return store, nil
	case KindRedis:
		return DialRedis(ctx, cfg.RedisURL, opts...)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}
