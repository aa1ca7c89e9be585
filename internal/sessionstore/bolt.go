package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/models"
)

const boltOpenTimeout = time.Second

var sessionsBucket = []byte("sessions")

// Bolt keeps the record in a bbolt database file
// Useful when several keys (profiles) share one file
type Bolt struct {
	db   *bbolt.DB
	opts options
}

func NewBolt(path string, opts ...Option) (*Bolt, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, filePerm, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt %s. Err: %w", apperrors.ErrStorageDown, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket. Err: %w", err)
	}

	return &Bolt{db: db, opts: newOptions(opts)}, nil
}

func (b *Bolt) Load(_ context.Context) (models.Session, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return apperrors.ErrSessionNotFound
		}
		v := bucket.Get([]byte(b.opts.key))
		if v == nil {
			return apperrors.ErrSessionNotFound
		}
		// Value is valid only during the transaction
		data = append([]byte(nil), v...)
		return nil
	})

	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return models.Session{}, err
	case err != nil:
		return models.Session{}, fmt.Errorf("bolt error: %w", err)
	}

	return b.opts.decode(data)
}

func (b *Bolt) Save(_ context.Context, s models.Session) error {
	data, err := b.opts.encode(s)
	if err != nil {
		return err
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(sessionsBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(b.opts.key), data)
	})
	if err != nil {
		return fmt.Errorf("bolt error: %w", err)
	}
	return nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
