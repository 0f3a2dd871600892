package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/userfolio/webapp/config"
)

// ObjectStorage defines common object operations across photo backends.
type ObjectStorage interface {
	Prepare(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// NewFromConfig builds the backend selected by configuration and makes
// sure its bucket or directory exists.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var backend ObjectStorage
	var err error

	switch cfg.Backend {
	case "", "local":
		backend, err = NewLocalStore(cfg.Local)
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := backend.Prepare(ctx); err != nil {
		return nil, err
	}
	return NewStorage(backend), nil
}

// Prepare ensures the configured bucket or directory exists.
func (s *Storage) Prepare(ctx context.Context) error {
	return s.backend.Prepare(ctx)
}

// Put stores an object under the given key.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a reader for a stored object.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes a stored object.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}
