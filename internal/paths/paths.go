package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// OfficialSource is the built-in source that is always present.
	OfficialSource = "official"
	// LocalSource is the pseudo-source for sideloaded apps.
	LocalSource = "local"

	defaultRootName = ".nrfconnect-apps"
)

// Layout captures canonical locations inside an apps root.
type Layout struct {
	Root              string
	ConfigFile        string
	SourcesFile       string
	LegacySourcesFile string
	LocalAppsDir      string
	LogsDir           string
}

// Resolve determines the apps root from the optional --apps-root-dir flag,
// falling back to ~/.nrfconnect-apps.
func Resolve(rootFlag string) (Layout, error) {
	var (
		root string
		err  error
	)

	if strings.TrimSpace(rootFlag) != "" {
		root, err = filepath.Abs(rootFlag)
	} else {
		root, err = DefaultRoot()
	}
	if err != nil {
		return Layout{}, fmt.Errorf("resolve apps root: %w", err)
	}

	return New(root), nil
}

// New returns the layout rooted at root.
func New(root string) Layout {
	return Layout{
		Root:              root,
		ConfigFile:        filepath.Join(root, "launcher.yaml"),
		SourcesFile:       filepath.Join(root, "sources-versioned.json"),
		LegacySourcesFile: filepath.Join(root, "sources.json"),
		LocalAppsDir:      filepath.Join(root, "local"),
		LogsDir:           filepath.Join(root, "logs"),
	}
}

// DefaultRoot returns ~/.nrfconnect-apps.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return filepath.Join(home, defaultRootName), nil
}

// SourceDir holds the metadata and installed apps of a source. The official
// source lives directly in the root.
func (l Layout) SourceDir(source string) string {
	if source == OfficialSource {
		return l.Root
	}
	return filepath.Join(l.Root, "sources", source)
}

// SourceJSONFile is the local copy of a source's manifest.
func (l Layout) SourceJSONFile(source string) string {
	return filepath.Join(l.SourceDir(source), "source.json")
}

// WithdrawnJSONFile lists the withdrawn apps of a source.
func (l Layout) WithdrawnJSONFile(source string) string {
	return filepath.Join(l.SourceDir(source), "withdrawn.json")
}

// NodeModulesDir is where apps of a source get installed.
func (l Layout) NodeModulesDir(source string) string {
	return filepath.Join(l.SourceDir(source), "node_modules")
}

// AppInstallDir is the canonical install path of an app.
func (l Layout) AppInstallDir(source, app string) string {
	return filepath.Join(l.NodeModulesDir(source), app)
}

// AppInfoFile is the per-app metadata file.
func (l Layout) AppInfoFile(source, app string) string {
	return filepath.Join(l.SourceDir(source), app+".json")
}

// AppIconFile is the downloaded icon of an app.
func (l Layout) AppIconFile(source, app string) string {
	return filepath.Join(l.SourceDir(source), app+".svg")
}

// ReleaseNotesFile is the downloaded changelog of an app.
func (l Layout) ReleaseNotesFile(source, app string) string {
	return filepath.Join(l.SourceDir(source), app+"-Changelog.md")
}

// LegacyAppsFile is the old combined manifest of a source.
func (l Layout) LegacyAppsFile(source string) string {
	return filepath.Join(l.SourceDir(source), "apps.json")
}

// LegacyUpdatesFile is the old latest-version map of a source.
func (l Layout) LegacyUpdatesFile(source string) string {
	return filepath.Join(l.SourceDir(source), "updates.json")
}

// LocalAppDir is the directory of a sideloaded app.
func (l Layout) LocalAppDir(app string) string {
	return filepath.Join(l.LocalAppsDir, app)
}

// EnsureDirs creates the root, local apps and logs directories.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.Root, l.LocalAppsDir, l.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// IsWithin reports whether path lies strictly inside dir.
func IsWithin(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
