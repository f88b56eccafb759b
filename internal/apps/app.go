package apps

import (
	"encoding/json"
	"fmt"
)

// AppSpec identifies an app by source and name.
type AppSpec struct {
	Source string `json:"source"`
	Name   string `json:"name"`
}

func (s AppSpec) String() string {
	return s.Source + "/" + s.Name
}

// Kind discriminates the App variants on the wire.
type Kind string

const (
	KindLocal       Kind = "local"
	KindUninstalled Kind = "uninstalled"
	KindInstalled   Kind = "installed"
	KindWithdrawn   Kind = "withdrawn"
)

// App is one resolved app. The concrete type is one of *LocalApp,
// *UninstalledDownloadableApp, *InstalledDownloadableApp or *WithdrawnApp.
type App interface {
	Kind() Kind
	Spec() AppSpec
	isApp()
}

// Base holds the fields every app variant shares.
type Base struct {
	Source      string `json:"source"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Homepage    string `json:"homepage,omitempty"`
	IconPath    string `json:"iconPath,omitempty"`
}

// Spec implements App.
func (b Base) Spec() AppSpec {
	return AppSpec{Source: b.Source, Name: b.Name}
}

// LocalApp is a sideloaded app below the local apps directory.
type LocalApp struct {
	Base
	CurrentVersion string            `json:"currentVersion"`
	Path           string            `json:"path"`
	Engines        map[string]string `json:"engines,omitempty"`
}

// UninstalledDownloadableApp is offered by a source but not installed.
type UninstalledDownloadableApp struct {
	Base
	LatestVersion string   `json:"latestVersion"`
	Versions      []string `json:"versions"`
	ReleaseNotes  string   `json:"releaseNotes,omitempty"`
}

// InstalledDownloadableApp is offered by a source and installed.
type InstalledDownloadableApp struct {
	Base
	LatestVersion    string            `json:"latestVersion"`
	Versions         []string          `json:"versions"`
	CurrentVersion   string            `json:"currentVersion"`
	Path             string            `json:"path"`
	Shasum           string            `json:"shasum,omitempty"`
	UpgradeAvailable bool              `json:"upgradeAvailable"`
	ReleaseNotes     string            `json:"releaseNotes,omitempty"`
	Engines          map[string]string `json:"engines,omitempty"`
}

// WithdrawnApp is installed but no longer listed by its source.
type WithdrawnApp struct {
	Base
	CurrentVersion string `json:"currentVersion"`
	Path           string `json:"path"`
}

func (*LocalApp) Kind() Kind                   { return KindLocal }
func (*UninstalledDownloadableApp) Kind() Kind { return KindUninstalled }
func (*InstalledDownloadableApp) Kind() Kind   { return KindInstalled }
func (*WithdrawnApp) Kind() Kind               { return KindWithdrawn }

func (*LocalApp) isApp()                   {}
func (*UninstalledDownloadableApp) isApp() {}
func (*InstalledDownloadableApp) isApp()   {}
func (*WithdrawnApp) isApp()               {}

func (a *LocalApp) MarshalJSON() ([]byte, error) {
	type plain LocalApp
	return marshalKind(KindLocal, plain(*a))
}

func (a *UninstalledDownloadableApp) MarshalJSON() ([]byte, error) {
	type plain UninstalledDownloadableApp
	return marshalKind(KindUninstalled, plain(*a))
}

func (a *InstalledDownloadableApp) MarshalJSON() ([]byte, error) {
	type plain InstalledDownloadableApp
	return marshalKind(KindInstalled, plain(*a))
}

func (a *WithdrawnApp) MarshalJSON() ([]byte, error) {
	type plain WithdrawnApp
	return marshalKind(KindWithdrawn, plain(*a))
}

// marshalKind encodes v with a leading "kind" member.
func marshalKind(kind Kind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}
	out := append([]byte(`{"kind":`), head...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
		return out, nil
	}
	return append(out, '}'), nil
}

// AppError records a per-app failure inside a batch operation.
type AppError struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("app %s/%s: %s", e.Source, e.Name, e.Reason)
}
