// Package migrate converts metadata written by older launcher versions into
// the current layout. Every step is gated on file existence so it is safe to
// run on each start.
package migrate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"launcher/internal/jsonfile"
	"launcher/internal/logx"
	"launcher/internal/paths"
	"launcher/pkg/appspec"
)

// DiscontinuedApp was dropped from the official source when the manifest
// format changed. Installs of it are carried over as withdrawn.
const DiscontinuedApp = "pc-nrfconnect-gettingstarted"

// SourceLister is the part of the source registry the migrator needs.
type SourceLister interface {
	Load() error
	All() ([]appspec.Source, error)
}

// Migrator rewrites legacy metadata inside one apps root.
type Migrator struct {
	Layout paths.Layout
	Logger logx.Logger
}

// Report summarises a full migration run.
type Report struct {
	SourcesList bool     `json:"sourcesList"`
	Sources     []string `json:"sources"`
	Apps        int      `json:"apps"`
}

func (m *Migrator) logger() logx.Logger {
	return logx.OrDiscard(m.Logger)
}

// Migrate converts the legacy source list, then the legacy manifest of every
// registered source. Per-source failures are logged and returned joined; they
// do not stop the remaining sources.
func (m *Migrator) Migrate(registry SourceLister) (Report, error) {
	report := Report{Sources: []string{}}

	migrated, err := m.MigrateSourcesList()
	if err != nil {
		return report, err
	}
	report.SourcesList = migrated
	if migrated {
		if err := registry.Load(); err != nil {
			return report, err
		}
	}

	all, err := registry.All()
	if err != nil {
		return report, err
	}

	var errs []error
	for _, src := range all {
		apps, err := m.MigrateSource(src)
		if err != nil {
			m.logger().Printf("migrate source %s: %v", src.Name, err)
			errs = append(errs, fmt.Errorf("migrate source %s: %w", src.Name, err))
			continue
		}
		if apps > 0 {
			report.Sources = append(report.Sources, src.Name)
			report.Apps += apps
		}
	}
	return report, errors.Join(errs...)
}

// MigrateSourcesList converts the flat sources.json into
// sources-versioned.json. It does nothing when the new file already exists or
// the old one never did.
func (m *Migrator) MigrateSourcesList() (bool, error) {
	if ok, err := paths.FileExists(m.Layout.SourcesFile); err != nil || ok {
		return false, err
	}
	var legacy appspec.LegacySourcesJSON
	found, err := jsonfile.ReadOr(m.Layout.LegacySourcesFile, &legacy)
	if err != nil || !found {
		return false, err
	}

	names := make([]string, 0, len(legacy))
	for name := range legacy {
		if name == paths.OfficialSource || name == paths.LocalSource {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	file := appspec.VersionedSources{V1: make([]appspec.Source, 0, len(names))}
	for _, name := range names {
		url := legacy[name]
		if strings.HasSuffix(url, "/apps.json") {
			url = appspec.SiblingURL(url, "source.json")
		}
		file.V1 = append(file.V1, appspec.Source{Name: name, URL: url})
	}

	if err := jsonfile.Write(m.Layout.SourcesFile, file); err != nil {
		return false, err
	}
	m.logger().Printf("migrated %d sources from %s", len(file.V1), m.Layout.LegacySourcesFile)
	return true, nil
}

// MigrateSource synthesises source.json and per-app metadata from a legacy
// apps.json/updates.json pair. It returns the number of apps written, which
// is zero when the source is already migrated or has no legacy files. The
// legacy files are left in place.
func (m *Migrator) MigrateSource(src appspec.Source) (int, error) {
	if ok, err := paths.FileExists(m.Layout.SourceJSONFile(src.Name)); err != nil || ok {
		return 0, err
	}
	var legacyApps appspec.LegacyAppsJSON
	found, err := jsonfile.ReadOr(m.Layout.LegacyAppsFile(src.Name), &legacyApps)
	if err != nil || !found {
		return 0, err
	}
	updates := appspec.LegacyUpdatesJSON{}
	if _, err := jsonfile.ReadOr(m.Layout.LegacyUpdatesFile(src.Name), &updates); err != nil {
		m.logger().Printf("ignoring unreadable %s: %v", m.Layout.LegacyUpdatesFile(src.Name), err)
	}

	names := make([]string, 0, len(legacyApps))
	for name := range legacyApps {
		names = append(names, name)
	}
	sort.Strings(names)

	manifest := appspec.SourceJSON{Name: src.Name, Apps: make([]string, 0, len(names))}
	for _, name := range names {
		info, err := m.legacyAppInfo(src, name, legacyApps[name], updates[name])
		if err != nil {
			return 0, err
		}
		if err := jsonfile.Write(m.Layout.AppInfoFile(src.Name, name), info); err != nil {
			return 0, err
		}
		manifest.Apps = append(manifest.Apps, appspec.SiblingURL(src.URL, name+".json"))
	}

	withdrawn := appspec.WithdrawnJSON{}
	if src.Name == paths.OfficialSource {
		if ok, _ := paths.DirExists(m.Layout.AppInstallDir(src.Name, DiscontinuedApp)); ok {
			withdrawn = append(withdrawn, appspec.SiblingURL(src.URL, DiscontinuedApp+".json"))
		}
	}
	if err := jsonfile.Write(m.Layout.WithdrawnJSONFile(src.Name), withdrawn); err != nil {
		return 0, err
	}

	// source.json goes last: it is the marker that the source is migrated.
	if err := jsonfile.Write(m.Layout.SourceJSONFile(src.Name), manifest); err != nil {
		return 0, err
	}
	m.logger().Printf("migrated %d legacy apps of source %s", len(names), src.Name)
	return len(names), nil
}

func (m *Migrator) legacyAppInfo(src appspec.Source, name string, entry appspec.LegacyAppEntry, latest string) (appspec.AppInfo, error) {
	info := appspec.AppInfo{
		Name:            name,
		DisplayName:     entry.DisplayName,
		Description:     entry.Description,
		Homepage:        entry.Homepage,
		IconURL:         appspec.SiblingURL(src.URL, name+".svg"),
		ReleaseNotesURL: appspec.SiblingURL(src.URL, name+"-Changelog.md"),
		LatestVersion:   latest,
	}
	if latest != "" {
		info.Versions = map[string]appspec.AppVersion{
			latest: {TarballURL: legacyTarballURL(src, name, entry.URL, latest)},
		}
	}

	installDir := m.Layout.AppInstallDir(src.Name, name)
	ok, err := paths.DirExists(installDir)
	if err != nil {
		return appspec.AppInfo{}, err
	}
	if ok {
		info.Installed = &appspec.InstallRecord{Path: installDir}
	}
	return info, nil
}

// legacyTarballURL follows the npm registry layout the legacy manifest
// pointed at: <registry>/<name>/-/<name>-<version>.tgz.
func legacyTarballURL(src appspec.Source, name, registry, version string) string {
	file := name + "-" + version + ".tgz"
	registry = strings.TrimSuffix(registry, "/")
	if registry == "" {
		return appspec.SiblingURL(src.URL, file)
	}
	if !strings.HasSuffix(registry, "/"+name) {
		registry += "/" + name
	}
	return registry + "/-/" + file
}
