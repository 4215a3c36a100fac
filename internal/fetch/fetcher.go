// Package fetch materializes remote generation results: it downloads the
// binary asset behind a result descriptor and exposes it as a locally
// addressable video file that the owner must release when superseded.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"veogen-api/internal/storage"
	"veogen-api/internal/veo"
)

// Downloader is the subset of the Veo client the fetcher needs.
type Downloader interface {
	Download(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Fetcher downloads result descriptors into the local store.
type Fetcher struct {
	client Downloader
	store  storage.Store
	logger *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client Downloader, store storage.Store, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Fetch downloads the asset behind the descriptor and saves it locally.
// The returned Video owns the local file; the caller must Release it when
// it is superseded or the session resets.
func (f *Fetcher) Fetch(ctx context.Context, desc *veo.Descriptor) (*Video, error) {
	rc, err := f.client.Download(ctx, desc.URI)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	path, err := f.store.SaveVideo(ctx, "video", rc)
	if err != nil {
		return nil, fmt.Errorf("fetch: materialize video: %w", err)
	}

	f.logger.Info("video materialized",
		slog.String("uri", desc.URI),
		slog.String("path", path),
	)

	return &Video{
		path:       path,
		archiveURL: f.archive(ctx, path),
		descriptor: desc,
		store:      f.store,
	}, nil
}

// archive copies the materialized file to durable storage when the store
// supports it. Archival failure never fails the fetch; the local file is
// the source of truth.
func (f *Fetcher) archive(ctx context.Context, path string) string {
	rc, err := f.store.OpenVideo(ctx, path)
	if err != nil {
		f.logger.Warn("failed to reopen video for archival",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer func() { _ = rc.Close() }()

	url, err := f.store.Archive(ctx, "videos/"+filepath.Base(path), rc)
	if err != nil {
		if !errors.Is(err, storage.ErrArchiveNotConfigured) {
			f.logger.Warn("failed to archive video",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}

	f.logger.Info("video archived", slog.String("url", url))
	return url
}

// Video is a materialized generation result: a local file plus the
// descriptor it came from. At most one should be live per session.
type Video struct {
	path       string
	archiveURL string
	descriptor *veo.Descriptor
	store      storage.Store

	mu       sync.Mutex
	released bool
}

// Path returns the local file path.
func (v *Video) Path() string {
	return v.path
}

// URL returns the addressable URL of the video: the archive URL when the
// result was archived, otherwise a file URL for the local copy.
func (v *Video) URL() string {
	if v.archiveURL != "" {
		return v.archiveURL
	}
	return "file://" + v.path
}

// Descriptor returns the remote descriptor this video was fetched from.
// It stays valid after Release and can seed an extend request.
func (v *Video) Descriptor() *veo.Descriptor {
	return v.descriptor
}

// Open opens the local file for reading.
// The caller is responsible for closing the returned ReadCloser.
func (v *Video) Open(ctx context.Context) (io.ReadCloser, error) {
	return v.store.OpenVideo(ctx, v.path)
}

// Release deletes the local file. It is idempotent; the descriptor is
// retained so the result can still be extended.
func (v *Video) Release(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return nil
	}
	if err := v.store.RemoveVideo(ctx, v.path); err != nil {
		return err
	}
	v.released = true
	return nil
}

// Released reports whether the local file has been released.
func (v *Video) Released() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released
}
