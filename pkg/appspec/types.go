// Package appspec describes the JSON documents exchanged with app sources and
// stored in an apps root: source manifests, per-app metadata, installed
// package.json files and the legacy formats they replaced.
package appspec

import (
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Source names a registry of downloadable apps and the URL of its manifest.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// VersionedSources is the content of sources-versioned.json.
type VersionedSources struct {
	V1 []Source `json:"v1"`
}

// SourceJSON is the manifest a source publishes (source.json).
type SourceJSON struct {
	Name string   `json:"name"`
	Apps []string `json:"apps"`
}

// WithdrawnJSON lists app info URLs that have disappeared from a source
// manifest but may still be installed.
type WithdrawnJSON []string

// AppVersion locates the tarball for one published version.
type AppVersion struct {
	TarballURL string `json:"tarballUrl"`
	Shasum     string `json:"shasum,omitempty"`
}

// InstallRecord is the local pointer to an installed copy of an app.
type InstallRecord struct {
	Path   string `json:"path"`
	Shasum string `json:"shasum,omitempty"`
}

// AppInfo is the per-app metadata file ({name}.json).
type AppInfo struct {
	Name            string                `json:"name"`
	DisplayName     string                `json:"displayName,omitempty"`
	Description     string                `json:"description,omitempty"`
	Homepage        string                `json:"homepage,omitempty"`
	IconURL         string                `json:"iconUrl,omitempty"`
	ReleaseNotesURL string                `json:"releaseNotesUrl,omitempty"`
	LatestVersion   string                `json:"latestVersion,omitempty"`
	Versions        map[string]AppVersion `json:"versions,omitempty"`
	Installed       *InstallRecord        `json:"installed,omitempty"`
}

// IsInstalled reports whether the metadata carries an install record.
func (a AppInfo) IsInstalled() bool {
	return a.Installed != nil && a.Installed.Path != ""
}

// Valid reports whether the metadata describes a downloadable app. Older
// launcher migrations produced files holding only an install record; those
// are not usable and must be skipped.
func (a AppInfo) Valid() bool {
	if a.Name == "" {
		return false
	}
	return a.LatestVersion != "" || len(a.Versions) > 0
}

// Version returns the tarball location of the requested version.
func (a AppInfo) Version(version string) (AppVersion, bool) {
	v, ok := a.Versions[version]
	return v, ok
}

// SortedVersions lists the published versions newest first. Versions that are
// not valid semver sort after the others in lexical order.
func (a AppInfo) SortedVersions() []string {
	var (
		parsed  []*semver.Version
		byParse = map[*semver.Version]string{}
		others  []string
	)
	for raw := range a.Versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			others = append(others, raw)
			continue
		}
		parsed = append(parsed, v)
		byParse[v] = raw
	}
	sort.Sort(sort.Reverse(semver.Collection(parsed)))
	sort.Strings(others)

	out := make([]string, 0, len(a.Versions))
	for _, v := range parsed {
		out = append(out, byParse[v])
	}
	return append(out, others...)
}

// PackageJSON holds the fields read from an installed app's package.json.
type PackageJSON struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	DisplayName string            `json:"displayName,omitempty"`
	Description string            `json:"description,omitempty"`
	Homepage    string            `json:"homepage,omitempty"`
	Engines     map[string]string `json:"engines,omitempty"`
}

// LegacyAppEntry is one app in the legacy apps.json file.
type LegacyAppEntry struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Homepage    string `json:"homepage,omitempty"`
}

// LegacyAppsJSON is the legacy combined manifest keyed by app name.
type LegacyAppsJSON map[string]LegacyAppEntry

// LegacyUpdatesJSON maps app names to their latest published version.
type LegacyUpdatesJSON map[string]string

// LegacySourcesJSON is the flat name to URL map of the old sources.json.
type LegacySourcesJSON map[string]string
