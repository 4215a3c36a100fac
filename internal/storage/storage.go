// Package storage provides local materialization of downloaded videos and
// an optional S3 archive for finished results. The Store interface is the
// port; LocalStore and S3Store are the implementations.
package storage

import (
	"context"
	"io"
)

// Store persists downloaded video content. Materialized videos live as
// local files until explicitly removed; Archive optionally copies a
// finished video to durable storage.
type Store interface {
	// SaveVideo streams data into a local file and returns its path.
	// The name parameter is used as a hint for the filename.
	SaveVideo(ctx context.Context, name string, data io.Reader) (path string, err error)

	// OpenVideo opens a previously saved video for reading.
	// The caller is responsible for closing the returned ReadCloser.
	OpenVideo(ctx context.Context, path string) (io.ReadCloser, error)

	// RemoveVideo deletes a saved video. Removing a path that no longer
	// exists is not an error.
	RemoveVideo(ctx context.Context, path string) error

	// Archive uploads a finished video to durable storage and returns its
	// URL. Returns ErrArchiveNotConfigured when no archive is set up.
	Archive(ctx context.Context, key string, data io.Reader) (url string, err error)
}
