package sessionstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/models"
)

// Both pgxpool.Pool and pgx.Tx satisfy it
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

// Postgres keeps records in 'client_sessions' table, one row per key
type Postgres struct {
	db      DBTX
	opts    options
	closeFn func()
}

func NewPostgres(db DBTX, opts ...Option) *Postgres {
	return &Postgres{db: db, opts: newOptions(opts)}
}

const getSession = `-- name: GetSession
SELECT payload FROM client_sessions
WHERE key = $1
`

func (p *Postgres) Load(ctx context.Context) (models.Session, error) {
	rows, _ := p.db.Query(ctx, getSession, p.opts.key)
	data, err := pgx.CollectOneRow(rows, pgx.RowTo[[]byte])

	switch {
	case err == nil:
		return p.opts.decode(data)
	case errors.Is(err, pgx.ErrNoRows):
		return models.Session{}, apperrors.ErrSessionNotFound
	default:
		return models.Session{}, pgError(err)
	}
}

const saveSession = `-- name: SaveSession
INSERT INTO client_sessions (key, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE
SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
`

func (p *Postgres) Save(ctx context.Context, s models.Session) error {
	data, err := p.opts.encode(s)
	if err != nil {
		return err
	}

	if _, err := p.db.Exec(ctx, saveSession, p.opts.key, data); err != nil {
		return pgError(err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return fmt.Errorf("%w: %w", apperrors.ErrStorageDown, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", apperrors.ErrStorageDown, err)
	}

	return fmt.Errorf("db error: %w", err)
}
