package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"launcher/internal/logx"
	"launcher/internal/paths"
	"launcher/pkg/appspec"
)

// Fetcher downloads raw documents.
type Fetcher interface {
	DownloadBytes(ctx context.Context, url string) ([]byte, error)
}

// SyncState is the progress of one source during DownloadAll.
type SyncState string

const (
	SyncPending     SyncState = "pending"
	SyncDownloading SyncState = "downloading"
	SyncDone        SyncState = "synced"
	SyncFailed      SyncState = "failed"
)

// SyncReport partitions the outcome of DownloadAll.
type SyncReport struct {
	Succeeded []appspec.Source `json:"succeeded"`
	Failed    []SourceError    `json:"failed"`
}

// Syncer mirrors remote source manifests into the apps root.
type Syncer struct {
	Registry    *Registry
	Fetcher     Fetcher
	Layout      paths.Layout
	Logger      logx.Logger
	Concurrency int

	// OnProgress, when set, is called as each source changes state. Calls
	// may come from several goroutines.
	OnProgress func(src appspec.Source, state SyncState, err error)
}

func (s *Syncer) logger() logx.Logger {
	return logx.OrDiscard(s.Logger)
}

func (s *Syncer) progress(src appspec.Source, state SyncState, err error) {
	if s.OnProgress != nil {
		s.OnProgress(src, state, err)
	}
}

// DownloadAll refreshes the manifest of every registered source. A failing
// source never affects the others; failures are reported per source.
func (s *Syncer) DownloadAll(ctx context.Context) (SyncReport, error) {
	all, err := s.Registry.All()
	if err != nil {
		return SyncReport{}, err
	}

	for _, src := range all {
		s.progress(src, SyncPending, nil)
	}

	errs := make([]error, len(all))
	var g errgroup.Group
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for i, src := range all {
		i, src := i, src
		g.Go(func() error {
			s.progress(src, SyncDownloading, nil)
			_, errs[i] = s.DownloadSource(ctx, src)
			if errs[i] != nil {
				s.logger().Printf("sync source %s failed: %v", src.Name, errs[i])
				s.progress(src, SyncFailed, errs[i])
			} else {
				s.progress(src, SyncDone, nil)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := SyncReport{Succeeded: []appspec.Source{}, Failed: []SourceError{}}
	for i, src := range all {
		if errs[i] != nil {
			report.Failed = append(report.Failed, newSourceError(src, errs[i]))
			continue
		}
		report.Succeeded = append(report.Succeeded, src)
	}
	return report, nil
}

// DownloadSource downloads the manifest of one source, stores it and updates
// its withdrawn list.
func (s *Syncer) DownloadSource(ctx context.Context, src appspec.Source) (appspec.SourceJSON, error) {
	s.logger().Printf("downloading manifest of %s from %s", src.Name, src.URL)
	data, err := s.Fetcher.DownloadBytes(ctx, src.URL)
	if err != nil {
		return appspec.SourceJSON{}, err
	}
	manifest, err := decodeManifest(data)
	if err != nil {
		return appspec.SourceJSON{}, err
	}

	if err := Store(s.Layout, src, manifest, s.logger()); err != nil {
		return appspec.SourceJSON{}, err
	}
	return manifest, nil
}

// Fetch downloads a manifest without storing it and returns the source it
// describes. URLs pointing at a legacy apps.json are retried once against
// the source.json next to it.
func (s *Syncer) Fetch(ctx context.Context, url string) (appspec.Source, appspec.SourceJSON, error) {
	data, err := s.Fetcher.DownloadBytes(ctx, url)
	if err != nil {
		return appspec.Source{}, appspec.SourceJSON{}, err
	}

	if strings.HasSuffix(url, "apps.json") && !hasAppsField(data) {
		url = appspec.SiblingURL(url, "source.json")
		s.logger().Printf("legacy manifest detected, retrying with %s", url)
		if data, err = s.Fetcher.DownloadBytes(ctx, url); err != nil {
			return appspec.Source{}, appspec.SourceJSON{}, err
		}
	}

	manifest, err := decodeManifest(data)
	if err != nil {
		return appspec.Source{}, appspec.SourceJSON{}, err
	}
	if IsReserved(manifest.Name) {
		return appspec.Source{}, appspec.SourceJSON{}, &ReservedNameError{Op: "add", Name: manifest.Name}
	}
	if err := appspec.CheckName(manifest.Name); err != nil {
		return appspec.Source{}, appspec.SourceJSON{}, fmt.Errorf("source at %s: %w", url, err)
	}
	return appspec.Source{Name: manifest.Name, URL: url}, manifest, nil
}

func hasAppsField(data []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, ok := probe["apps"]
	return ok
}

// Remove deletes the directory of a source and unregisters it.
func (s *Syncer) Remove(name string) error {
	if IsReserved(name) {
		return &ReservedNameError{Op: "remove", Name: name}
	}
	dir := s.Layout.SourceDir(name)
	if !paths.IsWithin(filepath.Join(s.Layout.Root, "sources"), dir) {
		return fmt.Errorf("remove source %q: directory %s is outside the apps root: %w", name, dir, appspec.ErrInvalidName)
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove source directory %s: %w", dir, err)
	}
	return s.Registry.Remove(name)
}
