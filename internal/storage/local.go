package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/userfolio/webapp/config"
)

// LocalStore keeps photos as plain files under a configured directory.
// It is the default backend; keys are assumed to be sanitized base names
// and are additionally confined with filepath.Base.
type LocalStore struct {
	dir string
}

// NewLocalStore constructs a local filesystem backend.
func NewLocalStore(cfg config.LocalConfig) (*LocalStore, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	return &LocalStore{dir: cfg.Dir}, nil
}

// Prepare creates the upload directory if it does not exist.
func (l *LocalStore) Prepare(_ context.Context) error {
	return os.MkdirAll(l.dir, 0o755)
}

// Put writes an object to a temporary file and renames it into place so
// a failed upload never leaves a partial file behind.
func (l *LocalStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), l.path(key))
}

// Get opens a stored object.
func (l *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(l.path(key))
}

// Delete removes a stored object.
func (l *LocalStore) Delete(_ context.Context, key string) error {
	return os.Remove(l.path(key))
}

// Dir returns the configured upload directory.
func (l *LocalStore) Dir() string {
	return l.dir
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.dir, filepath.Base(key))
}
