package appspec

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnrecognizedArchiveName is returned when an archive file name does not
// follow the {name}-{version}.tgz pattern.
var ErrUnrecognizedArchiveName = errors.New("unrecognized archive name")

// ErrInvalidName is returned for source and app names that cannot be used as
// a single directory name.
var ErrInvalidName = errors.New("invalid name")

// CheckName rejects names that would not stay a single path element once
// joined below a directory.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// NameFromArchive derives the app name from an archive path such as
// /downloads/pc-nrfconnect-ble-4.0.0.tgz. The name is everything before the
// last dash of the file name.
func NameFromArchive(archivePath string) (string, error) {
	base := path.Base(filepath.ToSlash(archivePath))
	lastDash := strings.LastIndex(base, "-")
	if lastDash <= 0 {
		return "", ErrUnrecognizedArchiveName
	}
	return base[:lastDash], nil
}

// AppNameFromURL returns the app name an app info URL refers to, which is the
// base name of the URL path without the .json extension.
func AppNameFromURL(appURL string) string {
	p := appURL
	if parsed, err := url.Parse(appURL); err == nil && parsed.Path != "" {
		p = parsed.Path
	}
	return strings.TrimSuffix(path.Base(p), ".json")
}

// SiblingURL replaces the last path element of rawURL with name.
func SiblingURL(rawURL, name string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		idx := strings.LastIndex(rawURL, "/")
		if idx < 0 {
			return name
		}
		return rawURL[:idx+1] + name
	}
	parsed.Path = path.Join(path.Dir(parsed.Path), name)
	parsed.RawPath = ""
	return parsed.String()
}
