package apps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"launcher/internal/archive"
	"launcher/internal/paths"
	"launcher/pkg/appspec"
)

// InstallResult is the outcome of an install. The concrete type is one of
// InstallSucceeded, InstallAppExists or InstallFailed.
type InstallResult interface {
	isInstallResult()
}

// InstallSucceeded carries the freshly resolved app.
type InstallSucceeded struct {
	App App
}

// InstallAppExists is returned when a local app directory is already taken
// and overwriting was not requested.
type InstallAppExists struct {
	Name string
	Path string
}

// FailureReason tells expected install failures apart.
type FailureReason string

const (
	FailureChecksumMismatch FailureReason = "checksum-mismatch"
	FailureBadArchiveName   FailureReason = "bad-archive-name"
	FailureReadOrExtract    FailureReason = "read-or-extract"
	FailureUnknownVersion   FailureReason = "unknown-version"
)

// InstallFailed is an expected failure the caller can act on.
type InstallFailed struct {
	Reason  FailureReason
	Message string
	// Path is the file left behind for inspection, if any.
	Path string
}

func (InstallSucceeded) isInstallResult() {}
func (InstallAppExists) isInstallResult() {}
func (InstallFailed) isInstallResult()    {}

// Describe renders a result for humans.
func Describe(result InstallResult) string {
	switch r := result.(type) {
	case InstallSucceeded:
		return fmt.Sprintf("installed %s", r.App.Spec())
	case InstallAppExists:
		return fmt.Sprintf("app %s already exists at %s", r.Name, r.Path)
	case InstallFailed:
		return fmt.Sprintf("install failed (%s): %s", r.Reason, r.Message)
	default:
		panic(fmt.Sprintf("unhandled install result %T", result))
	}
}

// Phase is a step of Install.
type Phase string

const (
	PhaseResolving   Phase = "resolving"
	PhaseDownloading Phase = "downloading"
	PhaseVerifying   Phase = "verifying"
	PhaseRemovingOld Phase = "removing-old"
	PhaseExtracting  Phase = "extracting"
	PhaseRecording   Phase = "recording"
)

// InstallOptions controls Install.
type InstallOptions struct {
	// Version to install. Empty selects the latest version.
	Version string
	OnPhase func(Phase)
}

// InstallLocalOptions controls InstallLocal.
type InstallLocalOptions struct {
	Overwrite bool
}

var newTempName = uuid.NewString

// Install downloads, verifies and extracts a version of an app, replacing
// any installed version. Network and disk errors are returned as errors;
// expected failures come back as InstallFailed.
func (s *Service) Install(ctx context.Context, spec AppSpec, opts InstallOptions) (InstallResult, error) {
	phase := func(p Phase) {
		s.logf("install %s: %s", spec, p)
		if opts.OnPhase != nil {
			opts.OnPhase(p)
		}
	}

	phase(PhaseResolving)
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
	version := opts.Version
	if version == "" {
		version = latestVersion(info)
	}
	target, ok := info.Version(version)
	if !ok || target.TarballURL == "" {
		return InstallFailed{
			Reason:  FailureUnknownVersion,
			Message: fmt.Sprintf("%s has no version %q", spec, version),
		}, nil
	}

	installDir := s.Layout.AppInstallDir(spec.Source, spec.Name)
	if appspec.CheckName(spec.Name) != nil || !paths.IsWithin(s.Layout.NodeModulesDir(spec.Source), installDir) {
		return nil, fmt.Errorf("install %s into %s: %w", spec, installDir, ErrOutsideManagedDir)
	}

	phase(PhaseDownloading)
	tarball := filepath.Join(s.tempDir(), newTempName()+".tgz")
	if err := s.Fetcher.DownloadToFile(ctx, target.TarballURL, tarball, true); err != nil {
		return nil, err
	}

	phase(PhaseVerifying)
	sum, ok, err := archive.VerifyShasum(tarball, target.Shasum)
	if err != nil {
		return nil, err
	}
	if !ok {
		return InstallFailed{
			Reason:  FailureChecksumMismatch,
			Message: fmt.Sprintf("shasum of %s is %s, expected %s; the tarball was kept at %s", target.TarballURL, sum, target.Shasum, tarball),
			Path:    tarball,
		}, nil
	}

	phase(PhaseRemovingOld)
	if info.IsInstalled() {
		if err := s.Remove(ctx, spec); err != nil {
			return nil, err
		}
		info.Installed = nil
	}
	if err := s.moveAndDelete(installDir); err != nil {
		return nil, err
	}

	phase(PhaseExtracting)
	staging, err := os.MkdirTemp(s.tempDir(), "launcher-extract-*")
	if err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := archive.Untar(tarball, staging, 1); err != nil {
		return InstallFailed{Reason: FailureReadOrExtract, Message: err.Error(), Path: tarball}, nil
	}
	if err := archive.MoveDir(staging, installDir); err != nil {
		return nil, err
	}
	if err := os.Remove(tarball); err != nil {
		s.logf("remove %s: %v", tarball, err)
	}

	phase(PhaseRecording)
	info.Installed = &appspec.InstallRecord{Path: installDir, Shasum: sum}
	if _, err := s.WriteAppInfo(info, src, WriteOptions{}); err != nil {
		return nil, err
	}

	app, err := s.DownloadableApp(ctx, spec)
	if err != nil {
		return nil, err
	}
	return InstallSucceeded{App: app}, nil
}

// Remove uninstalls an app of a source. The install record is cleared before
// any file is touched.
func (s *Service) Remove(_ context.Context, spec AppSpec) error {
	src, ok, err := s.Registry.Get(spec.Source)
	if err != nil {
		return err
	}
	if !ok {
		return &UnknownSourceError{Source: spec.Source}
	}
	info, err := s.ReadAppInfo(spec)
	if err != nil {
		return err
	}

	path := s.Layout.AppInstallDir(spec.Source, spec.Name)
	if info.IsInstalled() {
		path = info.Installed.Path
	}
	if !paths.IsWithin(s.Layout.NodeModulesDir(spec.Source), path) {
		return fmt.Errorf("remove %s from %s: %w", spec, path, ErrOutsideManagedDir)
	}

	info.Installed = nil
	if _, err := s.WriteAppInfo(info, src, WriteOptions{}); err != nil {
		return err
	}
	if err := s.moveAndDelete(path); err != nil {
		return err
	}
	s.logf("removed %s from %s", spec, path)
	return nil
}

// InstallLocal extracts a {name}-{version}.tgz archive into the local apps
// directory.
func (s *Service) InstallLocal(_ context.Context, archivePath string, opts InstallLocalOptions) (InstallResult, error) {
	name, err := appspec.NameFromArchive(archivePath)
	if err != nil {
		return InstallFailed{
			Reason:  FailureBadArchiveName,
			Message: fmt.Sprintf("%s: the file name must look like {name}-{version}.tgz", filepath.Base(archivePath)),
		}, nil
	}

	dir := s.Layout.LocalAppDir(name)
	if !paths.IsWithin(s.Layout.LocalAppsDir, dir) {
		return InstallFailed{Reason: FailureBadArchiveName, Message: fmt.Sprintf("%q is not a valid app name", name)}, nil
	}
	existing, err := os.Lstat(dir)
	switch {
	case err == nil && !existing.IsDir():
		return InstallFailed{
			Reason:  FailureReadOrExtract,
			Message: fmt.Sprintf("%s exists and is not a directory", dir),
		}, nil
	case err == nil:
		if !opts.Overwrite {
			return InstallAppExists{Name: name, Path: dir}, nil
		}
		if err := s.moveAndDelete(dir); err != nil {
			return nil, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	if err := archive.Untar(archivePath, dir, 1); err != nil {
		_ = os.RemoveAll(dir)
		return InstallFailed{Reason: FailureReadOrExtract, Message: err.Error()}, nil
	}
	pkg, err := readPackageJSON(dir)
	if err == nil && pkg.Name != name {
		err = fmt.Errorf("package.json declares %q but the archive is named for %q", pkg.Name, name)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return InstallFailed{Reason: FailureReadOrExtract, Message: err.Error()}, nil
	}

	s.logf("installed local app %s from %s", name, archivePath)
	return InstallSucceeded{App: localApp(name, dir, pkg)}, nil
}

// RemoveLocal deletes a sideloaded app.
func (s *Service) RemoveLocal(name string) error {
	dir := s.Layout.LocalAppDir(name)
	if !paths.IsWithin(s.Layout.LocalAppsDir, dir) {
		return fmt.Errorf("remove local app %s: %w", name, ErrOutsideManagedDir)
	}
	if err := s.moveAndDelete(dir); err != nil {
		return err
	}
	s.logf("removed local app %s", name)
	return nil
}

// moveAndDelete moves dir out of the way before deleting it so the app
// disappears in one step.
func (s *Service) moveAndDelete(dir string) error {
	exists, err := paths.DirExists(dir)
	if err != nil || !exists {
		return err
	}
	trash := filepath.Join(s.tempDir(), "launcher-remove-"+newTempName())
	if err := archive.MoveDir(dir, trash); err != nil {
		return fmt.Errorf("move %s aside: %w", dir, err)
	}
	if err := os.RemoveAll(trash); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logf("delete %s: %v", trash, err)
	}
	return nil
}
