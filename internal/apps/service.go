// Package apps resolves, installs and removes the apps offered by the
// configured sources and the sideloaded apps of the local directory.
package apps

import (
	"context"
	"os"

	"launcher/internal/logx"
	"launcher/internal/migrate"
	"launcher/internal/notify"
	"launcher/internal/paths"
	"launcher/internal/sources"
)

// Fetcher is the download surface the service needs. *fetch.Client
// implements it.
type Fetcher interface {
	DownloadBytes(ctx context.Context, url string) ([]byte, error)
	DownloadToFile(ctx context.Context, url, dest string, allowProxyAuth bool) error
}

// Service ties the source registry, metadata files and install directories
// of one apps root together.
type Service struct {
	Layout   paths.Layout
	Registry *sources.Registry
	Syncer   *sources.Syncer
	Migrator *migrate.Migrator
	Fetcher  Fetcher
	Notifier notify.Notifier
	Logger   logx.Logger

	// Concurrency bounds parallel app info downloads per source.
	Concurrency int
	// TempDir holds downloaded tarballs and removed app directories.
	// Empty means os.TempDir().
	TempDir string
}

// NewService wires a service with a syncer and migrator sharing its
// registry, fetcher and logger.
func NewService(layout paths.Layout, registry *sources.Registry, fetcher Fetcher, logger logx.Logger) *Service {
	logger = logx.OrDiscard(logger)
	return &Service{
		Layout:   layout,
		Registry: registry,
		Syncer: &sources.Syncer{
			Registry:    registry,
			Fetcher:     fetcher,
			Layout:      layout,
			Logger:      logger,
			Concurrency: 4,
		},
		Migrator:    &migrate.Migrator{Layout: layout, Logger: logger},
		Fetcher:     fetcher,
		Notifier:    notify.Discard,
		Logger:      logger,
		Concurrency: 4,
	}
}

func (s *Service) logf(format string, v ...any) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Printf(format, v...)
}

func (s *Service) notifyError(title, message string) {
	s.logf("%s: %s", title, message)
	notify.OrDiscard(s.Notifier).ShowError(title, message)
}

func (s *Service) tempDir() string {
	if s.TempDir != "" {
		return s.TempDir
	}
	return os.TempDir()
}

// bestEffort runs a non-critical step. Its failure is logged and otherwise
// ignored.
func bestEffort(logger logx.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logx.OrDiscard(logger).Printf("%s failed, continuing: %v", what, err)
	}
}
