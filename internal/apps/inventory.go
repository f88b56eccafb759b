package apps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"launcher/internal/jsonfile"
	"launcher/internal/paths"
	"launcher/internal/sources"
	"launcher/pkg/appspec"
)

// Inventory is the result of DownloadableApps.
type Inventory struct {
	Apps              []App                 `json:"apps"`
	AppsWithErrors    []AppError            `json:"appsWithErrors"`
	SourcesWithErrors []sources.SourceError `json:"sourcesWithErrors"`
}

// DownloadableApps lists the apps of every registered source together with
// their install state. Problems with one source or app are collected and do
// not hide the rest.
func (s *Service) DownloadableApps(ctx context.Context) (Inventory, error) {
	all, err := s.Registry.All()
	if err != nil {
		return Inventory{}, err
	}

	inv := Inventory{
		Apps:              []App{},
		AppsWithErrors:    []AppError{},
		SourcesWithErrors: []sources.SourceError{},
	}
	for _, src := range all {
		if err := ctx.Err(); err != nil {
			return inv, err
		}
		apps, appErrs, srcErrs := s.sourceApps(src)
		inv.Apps = append(inv.Apps, apps...)
		inv.AppsWithErrors = append(inv.AppsWithErrors, appErrs...)
		inv.SourcesWithErrors = append(inv.SourcesWithErrors, srcErrs...)
	}
	return inv, nil
}

func (s *Service) sourceApps(src appspec.Source) ([]App, []AppError, []sources.SourceError) {
	if s.Migrator != nil {
		if _, err := s.Migrator.MigrateSource(src); err != nil {
			s.logf("migrate source %s: %v", src.Name, err)
		}
	}

	manifest, err := sources.ReadManifest(s.Layout, src)
	if err != nil {
		return nil, nil, []sources.SourceError{{Source: src, Reason: err.Error(), Err: err}}
	}

	var srcErrs []sources.SourceError
	if mismatch := sources.CheckManifestName(src, manifest); mismatch != nil {
		s.notifyError("Source name mismatch", mismatch.Reason)
		srcErrs = append(srcErrs, *mismatch)
	}

	withdrawn, err := sources.ReadWithdrawn(s.Layout, src)
	if err != nil {
		s.logf("ignoring unreadable withdrawn list of %s: %v", src.Name, err)
	}

	type entry struct {
		url       string
		withdrawn bool
	}
	var (
		entries []entry
		seen    = map[string]bool{}
	)
	for _, url := range manifest.Apps {
		if !seen[url] {
			seen[url] = true
			entries = append(entries, entry{url: url})
		}
	}
	for _, url := range withdrawn {
		if !seen[url] {
			seen[url] = true
			entries = append(entries, entry{url: url, withdrawn: true})
		}
	}

	apps := []App{}
	var appErrs []AppError
	for _, e := range entries {
		name := appspec.AppNameFromURL(e.url)
		info, found, valid, err := s.readStoredAppInfo(src.Name, name)
		if err != nil {
			appErrs = append(appErrs, AppError{Source: src.Name, Name: name, Path: s.Layout.AppInfoFile(src.Name, name), Reason: err.Error()})
			continue
		}
		if !found || !valid {
			continue
		}
		app, err := s.addInstalledAppData(src, info, e.withdrawn)
		if err != nil {
			appErrs = append(appErrs, AppError{Source: src.Name, Name: name, Path: installPath(info), Reason: err.Error()})
			continue
		}
		if app != nil {
			apps = append(apps, app)
		}
	}
	return apps, appErrs, srcErrs
}

// addInstalledAppData decorates stored metadata with the state of the
// install directory. It returns a nil App for withdrawn apps that are not
// installed.
func (s *Service) addInstalledAppData(src appspec.Source, info appspec.AppInfo, withdrawn bool) (App, error) {
	base := Base{
		Source:      src.Name,
		Name:        info.Name,
		DisplayName: info.DisplayName,
		Description: info.Description,
		Homepage:    info.Homepage,
	}
	if base.DisplayName == "" {
		base.DisplayName = info.Name
	}
	releaseNotes := s.readReleaseNotes(src.Name, info.Name)

	if info.IsInstalled() {
		present, err := paths.DirExists(info.Installed.Path)
		if err != nil {
			return nil, err
		}
		if !present {
			s.logf("install record of %s/%s points at missing %s, treating as not installed", src.Name, info.Name, info.Installed.Path)
			info.Installed = nil
		}
	}

	if !info.IsInstalled() {
		if withdrawn {
			return nil, nil
		}
		base.IconPath = existingFile(s.Layout.AppIconFile(src.Name, info.Name))
		return &UninstalledDownloadableApp{
			Base:          base,
			LatestVersion: latestVersion(info),
			Versions:      info.SortedVersions(),
			ReleaseNotes:  releaseNotes,
		}, nil
	}

	path := info.Installed.Path
	pkg, err := readPackageJSON(path)
	if err != nil {
		return nil, err
	}
	if pkg.DisplayName != "" {
		base.DisplayName = pkg.DisplayName
	}
	if pkg.Description != "" {
		base.Description = pkg.Description
	}
	if pkg.Homepage != "" {
		base.Homepage = pkg.Homepage
	}
	base.IconPath = existingFile(filepath.Join(path, "resources", "icon.png"))
	if base.IconPath == "" {
		base.IconPath = existingFile(s.Layout.AppIconFile(src.Name, info.Name))
	}

	if withdrawn {
		return &WithdrawnApp{Base: base, CurrentVersion: pkg.Version, Path: path}, nil
	}
	latest := latestVersion(info)
	return &InstalledDownloadableApp{
		Base:             base,
		LatestVersion:    latest,
		Versions:         info.SortedVersions(),
		CurrentVersion:   pkg.Version,
		Path:             path,
		Shasum:           info.Installed.Shasum,
		UpgradeAvailable: latest != pkg.Version,
		ReleaseNotes:     releaseNotes,
		Engines:          pkg.Engines,
	}, nil
}

// DownloadableApp resolves a single app of a registered source.
func (s *Service) DownloadableApp(_ context.Context, spec AppSpec) (App, error) {
	src, ok, err := s.Registry.Get(spec.Source)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &UnknownSourceError{Source: spec.Source}
	}
	info, err := s.ReadAppInfo(spec)
	if err != nil {
		return nil, err
	}

	manifest, err := sources.ReadManifest(s.Layout, src)
	if err != nil {
		return nil, err
	}
	withdrawn := true
	for _, url := range manifest.Apps {
		if appspec.AppNameFromURL(url) == spec.Name {
			withdrawn = false
			break
		}
	}

	app, err := s.addInstalledAppData(src, info, withdrawn)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, fmt.Errorf("%s: %w", spec, ErrNotAvailable)
	}
	return app, nil
}

// LocalApps lists the sideloaded apps. With consistencyCheck, apps whose
// package.json name differs from their directory name are left out and
// reported once through the notifier.
func (s *Service) LocalApps(consistencyCheck bool) ([]*LocalApp, []AppError, error) {
	entries, err := os.ReadDir(s.Layout.LocalAppsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*LocalApp{}, nil, nil
		}
		return nil, nil, fmt.Errorf("list local apps: %w", err)
	}

	apps := []*LocalApp{}
	var appErrs []AppError
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.Layout.LocalAppsDir, entry.Name())
		pkg, err := readPackageJSON(dir)
		if err != nil {
			appErrs = append(appErrs, AppError{Source: paths.LocalSource, Name: entry.Name(), Path: dir, Reason: err.Error()})
			continue
		}
		if consistencyCheck && pkg.Name != entry.Name() {
			msg := fmt.Sprintf("The local app at %s has the name %q, which does not match the directory name %q. The app is not shown until the names match.", dir, pkg.Name, entry.Name())
			s.notifyError("Inconsistent local app", msg)
			appErrs = append(appErrs, AppError{Source: paths.LocalSource, Name: entry.Name(), Path: dir, Reason: msg})
			continue
		}
		apps = append(apps, localApp(entry.Name(), dir, pkg))
	}
	return apps, appErrs, nil
}

func localApp(dirName, dir string, pkg appspec.PackageJSON) *LocalApp {
	name := pkg.Name
	if name == "" {
		name = dirName
	}
	displayName := pkg.DisplayName
	if displayName == "" {
		displayName = name
	}
	return &LocalApp{
		Base: Base{
			Source:      paths.LocalSource,
			Name:        name,
			DisplayName: displayName,
			Description: pkg.Description,
			Homepage:    pkg.Homepage,
			IconPath:    existingFile(filepath.Join(dir, "resources", "icon.png")),
		},
		CurrentVersion: pkg.Version,
		Path:           dir,
		Engines:        pkg.Engines,
	}
}

func readPackageJSON(dir string) (appspec.PackageJSON, error) {
	var pkg appspec.PackageJSON
	if err := jsonfile.Read(filepath.Join(dir, "package.json"), &pkg); err != nil {
		return appspec.PackageJSON{}, err
	}
	if err := appspec.ValidatePackageJSON(pkg); err != nil {
		return appspec.PackageJSON{}, err
	}
	return pkg, nil
}

func (s *Service) readReleaseNotes(source, name string) string {
	text, err := jsonfile.ReadText(s.Layout.ReleaseNotesFile(source, name))
	if err != nil {
		return ""
	}
	return text
}

func latestVersion(info appspec.AppInfo) string {
	if info.LatestVersion != "" {
		return info.LatestVersion
	}
	if versions := info.SortedVersions(); len(versions) > 0 {
		return versions[0]
	}
	return ""
}

func installPath(info appspec.AppInfo) string {
	if info.Installed == nil {
		return ""
	}
	return info.Installed.Path
}

func existingFile(path string) string {
	if ok, _ := paths.FileExists(path); ok {
		return path
	}
	return ""
}
