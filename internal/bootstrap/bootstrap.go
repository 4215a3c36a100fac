// Package bootstrap provides dependency initialization for the video
// generation API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"veogen-api/internal/auth"
	"veogen-api/internal/config"
	"veogen-api/internal/fetch"
	"veogen-api/internal/operation"
	"veogen-api/internal/server"
	"veogen-api/internal/session"
	"veogen-api/internal/storage"
	"veogen-api/internal/veo"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Credentials    *auth.Selectable
	SessionFactory server.SessionFactory
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	creds := auth.NewSelectable(cfg.GeminiAPIKey)

	client, err := veo.NewClient(creds, veo.WithBaseURL(cfg.VeoBaseURL))
	if err != nil {
		return nil, fmt.Errorf("create Veo client: %w", err)
	}

	poller := operation.NewPoller(client,
		operation.WithInterval(cfg.PollInterval),
		operation.WithMaxWait(cfg.PollMaxWait),
		operation.WithLogger(logger),
	)

	fetcher := fetch.NewFetcher(client, store, logger)

	factory := func() *session.Session {
		return session.New(poller, fetcher, creds, logger)
	}

	return &Dependencies{
		Credentials:    creds,
		SessionFactory: factory,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Store(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
