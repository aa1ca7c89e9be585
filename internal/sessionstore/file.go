package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/models"
)

const filePerm = 0o600

// File keeps the record in a single file readable by the owner only
// The key is not used: one file holds one record
type File struct {
	path string
	mu   sync.Mutex
	opts options
}

func NewFile(path string, opts ...Option) (*File, error) {
	if path == "" {
		return nil, errors.New("session file path must not be empty")
	}
	return &File{path: filepath.Clean(path), opts: newOptions(opts)}, nil
}

func (f *File) Load(_ context.Context) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return models.Session{}, apperrors.ErrSessionNotFound
	case err != nil:
		return models.Session{}, fmt.Errorf("read session file. Err: %w", err)
	}

	return f.opts.decode(data)
}

func (f *File) Save(_ context.Context, s models.Session) error {
	data, err := f.opts.encode(s)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := atomicWriteFile(f.path, data); err != nil {
		return fmt.Errorf("write session file. Err: %w", err)
	}
	return nil
}

func (f *File) Close() error {
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// atomicWriteFile replaces file content so readers see either old or new record
// temp file in the same dir -> write -> fsync -> chmod -> rename
func atomicWriteFile(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
