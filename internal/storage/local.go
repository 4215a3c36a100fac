package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrArchiveNotConfigured is returned when archive operations are
// attempted without S3 configuration.
var ErrArchiveNotConfigured = errors.New("archive storage is not configured")

// LocalStore implements Store on the local disk. Videos are written to a
// configurable directory; Archive is unsupported unless wrapped by S3Store.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a LocalStore rooted at dir. If dir is empty, a
// subdirectory of os.TempDir() is used. The directory is created if it
// doesn't exist.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "veogen")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create video directory: %w", err)
	}

	return &LocalStore{dir: dir}, nil
}

// Dir returns the directory videos are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// SaveVideo streams data into a new file under the store directory. The
// name is used as a base for the filename with a unique suffix.
func (s *LocalStore) SaveVideo(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.dir, name+"_*.mp4")
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write video file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close video file: %w", err)
	}

	return fileName, nil
}

// OpenVideo opens a saved video for reading.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStore) OpenVideo(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is produced by SaveVideo
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}

	return f, nil
}

// RemoveVideo deletes a saved video. A missing file is not an error so
// release stays idempotent.
func (s *LocalStore) RemoveVideo(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove video file %s: %w", path, err)
	}
	return nil
}

// Archive is not supported by LocalStore and returns ErrArchiveNotConfigured.
func (s *LocalStore) Archive(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrArchiveNotConfigured
}

// Compile-time check that LocalStore implements Store.
var _ Store = (*LocalStore)(nil)
