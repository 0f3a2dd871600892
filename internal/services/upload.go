package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/userfolio/webapp/internal/storage"
)

// allowedExtensions is the fixed allow-list for profile photos.
var allowedExtensions = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

const safeFilenameRunes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789._-"

// UploadService validates profile photos and writes them to the
// configured storage backend.
type UploadService struct {
	storage  *storage.Storage
	maxBytes int64
}

func NewUploadService(st *storage.Storage, maxBytes int64) *UploadService {
	return &UploadService{storage: st, maxBytes: maxBytes}
}

// MaxBytes returns the upload size bound.
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// ValidateFilename checks the extension allow-list and returns a
// filesystem-safe base name. The extension is the substring after the
// final dot, compared case-insensitively; a name without a dot is
// rejected outright.
func ValidateFilename(filename string) (string, error) {
	dot := strings.LastIndex(filename, ".")
	if dot < 0 {
		return "", fmt.Errorf("%w: no file extension", ErrUploadRejected)
	}
	ext := strings.ToLower(filename[dot+1:])
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: extension %q not allowed", ErrUploadRejected, ext)
	}

	safe := sanitizeFilename(filename)
	if safe == "" || !strings.Contains(safe, ".") {
		return "", fmt.Errorf("%w: unusable filename", ErrUploadRejected)
	}
	return safe, nil
}

// Store validates the file and writes it under a unique key, returning
// the key to persist on the user record. Distinct users uploading files
// with the same name never collide: the key embeds a random identifier.
func (s *UploadService) Store(ctx context.Context, filename string, file io.Reader) (string, error) {
	safe, err := ValidateFilename(filename)
	if err != nil {
		return "", err
	}

	data, err := readLimited(file, s.maxBytes)
	if err != nil {
		return "", err
	}

	key := uuid.NewString() + "_" + safe
	contentType := allowedExtensions[strings.ToLower(safe[strings.LastIndex(safe, ".")+1:])]
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return key, nil
}

// Open streams a previously stored photo.
func (s *UploadService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.storage.Get(ctx, key)
}

// Remove deletes a stored photo. Used to clean up when registration
// fails after the photo was already written.
func (s *UploadService) Remove(ctx context.Context, key string) error {
	return s.storage.Delete(ctx, key)
}

// sanitizeFilename strips directory components and any rune outside a
// conservative allow-list, then collapses leading dots so the result can
// never escape the storage root or hide as a dotfile.
func sanitizeFilename(filename string) string {
	if idx := strings.LastIndexAny(filename, `/\`); idx >= 0 {
		filename = filename[idx+1:]
	}

	var b strings.Builder
	for _, r := range filename {
		if strings.ContainsRune(safeFilenameRunes, r) {
			b.WriteRune(r)
		} else if r == ' ' {
			b.WriteRune('_')
		}
	}
	return strings.TrimLeft(b.String(), ".")
}

func readLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read upload", ErrUploadRejected)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrUploadRejected, limit)
	}
	return data, nil
}
