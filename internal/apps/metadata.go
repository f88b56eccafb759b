package apps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"launcher/internal/jsonfile"
	"launcher/internal/sources"
	"launcher/pkg/appspec"
)

// WriteOptions controls WriteAppInfo.
type WriteOptions struct {
	// KeepInstallInfo carries the stored install record over to the new
	// content.
	KeepInstallInfo bool
}

// AddSourceResult is returned by AddSource.
type AddSourceResult struct {
	Source         appspec.Source `json:"source"`
	Apps           []App          `json:"apps"`
	AppsWithErrors []AppError     `json:"appsWithErrors"`
}

// ReadAppInfo reads the stored metadata of an app.
func (s *Service) ReadAppInfo(spec AppSpec) (appspec.AppInfo, error) {
	if _, ok, err := s.Registry.Get(spec.Source); err != nil {
		return appspec.AppInfo{}, err
	} else if !ok {
		return appspec.AppInfo{}, &UnknownSourceError{Source: spec.Source}
	}
	var info appspec.AppInfo
	if err := jsonfile.Read(s.Layout.AppInfoFile(spec.Source, spec.Name), &info); err != nil {
		return appspec.AppInfo{}, err
	}
	return info, nil
}

// readStoredAppInfo reads and validates an app info file. found is false when
// the file does not exist yet; valid is false for files that cannot describe
// a downloadable app.
func (s *Service) readStoredAppInfo(source, name string) (info appspec.AppInfo, found, valid bool, err error) {
	path := s.Layout.AppInfoFile(source, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return appspec.AppInfo{}, false, false, nil
		}
		return appspec.AppInfo{}, false, false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return appspec.AppInfo{}, true, false, fmt.Errorf("decode %s: %w", path, err)
	}
	if !info.Valid() {
		return info, true, false, nil
	}
	if err := appspec.ValidateAppInfo(data); err != nil {
		s.logf("skipping %s: %v", path, err)
		return info, true, false, nil
	}
	return info, true, true, nil
}

// WriteAppInfo stores the metadata of an app and returns what was written.
func (s *Service) WriteAppInfo(info appspec.AppInfo, source appspec.Source, opts WriteOptions) (appspec.AppInfo, error) {
	path := s.Layout.AppInfoFile(source.Name, info.Name)
	if opts.KeepInstallInfo {
		var old appspec.AppInfo
		found, err := jsonfile.ReadOr(path, &old)
		if err != nil {
			s.logf("ignoring unreadable %s: %v", path, err)
		}
		if found && old.Installed != nil {
			info.Installed = old.Installed
		}
	}
	if err := jsonfile.Write(path, info); err != nil {
		return appspec.AppInfo{}, err
	}
	return info, nil
}

// DownloadAppInfos refreshes the metadata of every app listed by a source's
// stored manifest. Apps fail independently; the error return is reserved for
// an unreadable manifest.
func (s *Service) DownloadAppInfos(ctx context.Context, src appspec.Source) ([]appspec.AppInfo, []AppError, error) {
	manifest, err := sources.ReadManifest(s.Layout, src)
	if err != nil {
		return nil, nil, err
	}

	var (
		infos   = make([]*appspec.AppInfo, len(manifest.Apps))
		appErrs = make([]*AppError, len(manifest.Apps))
		g       errgroup.Group
	)
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for i, url := range manifest.Apps {
		i, url := i, url
		g.Go(func() error {
			info, err := s.downloadAppInfo(ctx, src, url)
			if err != nil {
				appErrs[i] = &AppError{Source: src.Name, Name: appspec.AppNameFromURL(url), Path: url, Reason: err.Error()}
				return nil
			}
			infos[i] = &info
			return nil
		})
	}
	_ = g.Wait()

	outInfos := make([]appspec.AppInfo, 0, len(infos))
	outErrs := []AppError{}
	for i := range manifest.Apps {
		if infos[i] != nil {
			outInfos = append(outInfos, *infos[i])
		}
		if appErrs[i] != nil {
			outErrs = append(outErrs, *appErrs[i])
		}
	}
	return outInfos, outErrs, nil
}

func (s *Service) downloadAppInfo(ctx context.Context, src appspec.Source, url string) (appspec.AppInfo, error) {
	s.logf("downloading app info %s", url)
	data, err := s.Fetcher.DownloadBytes(ctx, url)
	if err != nil {
		return appspec.AppInfo{}, err
	}
	if err := appspec.ValidateAppInfo(data); err != nil {
		return appspec.AppInfo{}, err
	}
	var info appspec.AppInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return appspec.AppInfo{}, fmt.Errorf("decode %s: %w", url, err)
	}

	expected := appspec.AppNameFromURL(url)
	if err := appspec.CheckName(info.Name); err != nil {
		return appspec.AppInfo{}, fmt.Errorf("app info at %s: %w", url, err)
	}
	if info.Name != expected {
		err := fmt.Errorf("app info at %s is named %q but should be named %q", url, info.Name, expected)
		s.notifyError("Invalid app info", err.Error())
		return appspec.AppInfo{}, err
	}

	written, err := s.WriteAppInfo(info, src, WriteOptions{KeepInstallInfo: true})
	if err != nil {
		return appspec.AppInfo{}, err
	}

	if info.IconURL != "" {
		bestEffort(s.Logger, "download icon of "+info.Name, func() error {
			return s.Fetcher.DownloadToFile(ctx, info.IconURL, s.Layout.AppIconFile(src.Name, info.Name), false)
		})
	}
	if info.ReleaseNotesURL != "" {
		bestEffort(s.Logger, "download release notes of "+info.Name, func() error {
			return s.Fetcher.DownloadToFile(ctx, info.ReleaseNotesURL, s.Layout.ReleaseNotesFile(src.Name, info.Name), false)
		})
	}
	return written, nil
}

// AddSource downloads the manifest at url, registers the source it names and
// fetches the metadata of its apps.
func (s *Service) AddSource(ctx context.Context, url string) (AddSourceResult, error) {
	src, manifest, err := s.Syncer.Fetch(ctx, url)
	if err != nil {
		return AddSourceResult{}, err
	}

	err = s.Registry.Batch(func() error {
		if err := s.Registry.Add(src); err != nil {
			return err
		}
		return sources.Store(s.Layout, src, manifest, s.Logger)
	})
	if err != nil {
		return AddSourceResult{}, fmt.Errorf("add source %s: %w", src.Name, err)
	}
	s.logf("added source %s from %s", src.Name, src.URL)

	_, appErrs, err := s.DownloadAppInfos(ctx, src)
	if err != nil {
		return AddSourceResult{}, err
	}
	apps, moreErrs, _ := s.sourceApps(src)
	return AddSourceResult{
		Source:         src,
		Apps:           apps,
		AppsWithErrors: append(appErrs, moreErrs...),
	}, nil
}

// RemoveSource deletes a source together with its metadata and installed
// apps.
func (s *Service) RemoveSource(name string) error {
	if err := s.Syncer.Remove(name); err != nil {
		return err
	}
	s.logf("removed source %s", name)
	return nil
}

// UpdateAll refreshes every source manifest and then the app metadata of each
// source that synced.
func (s *Service) UpdateAll(ctx context.Context) (sources.SyncReport, []AppError, error) {
	report, err := s.Syncer.DownloadAll(ctx)
	if err != nil {
		return report, nil, err
	}
	appErrs := []AppError{}
	for _, src := range report.Succeeded {
		_, errs, err := s.DownloadAppInfos(ctx, src)
		if err != nil {
			appErrs = append(appErrs, AppError{Source: src.Name, Reason: err.Error()})
			continue
		}
		appErrs = append(appErrs, errs...)
	}
	return report, appErrs, nil
}
