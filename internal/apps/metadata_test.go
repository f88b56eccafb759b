package apps

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"launcher/internal/jsonfile"
	"launcher/internal/paths"
	"launcher/pkg/appspec"
)

func TestWriteAppInfoKeepInstallInfo(t *testing.T) {
	f := newFixture(t)
	official := appspec.Source{Name: paths.OfficialSource}
	installedAt := f.layout.AppInstallDir(paths.OfficialSource, "pc-nrfconnect-ble")

	_, err := f.svc.WriteAppInfo(appspec.AppInfo{
		Name:          "pc-nrfconnect-ble",
		LatestVersion: "1.0.0",
		Installed:     &appspec.InstallRecord{Path: installedAt, Shasum: "abc"},
	}, official, WriteOptions{})
	if err != nil {
		t.Fatalf("WriteAppInfo: %v", err)
	}

	fresh := appspec.AppInfo{Name: "pc-nrfconnect-ble", LatestVersion: "2.0.0"}
	written, err := f.svc.WriteAppInfo(fresh, official, WriteOptions{KeepInstallInfo: true})
	if err != nil {
		t.Fatalf("WriteAppInfo: %v", err)
	}
	if !written.IsInstalled() || written.Installed.Path != installedAt {
		t.Fatalf("expected install record to survive, got %+v", written.Installed)
	}

	stored, err := f.svc.ReadAppInfo(AppSpec{Source: paths.OfficialSource, Name: "pc-nrfconnect-ble"})
	if err != nil {
		t.Fatalf("ReadAppInfo: %v", err)
	}
	if stored.LatestVersion != "2.0.0" || stored.Installed == nil || stored.Installed.Path != installedAt {
		t.Fatalf("unexpected stored info %+v", stored)
	}

	if _, err := f.svc.WriteAppInfo(fresh, official, WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	stored, _ = f.svc.ReadAppInfo(AppSpec{Source: paths.OfficialSource, Name: "pc-nrfconnect-ble"})
	if stored.Installed != nil {
		t.Fatalf("expected install record to be dropped without KeepInstallInfo, got %+v", stored.Installed)
	}
}

func TestReadAppInfoUnknownSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ReadAppInfo(AppSpec{Source: "nope", Name: "x"})
	var unknown *UnknownSourceError
	if !errors.As(err, &unknown) || unknown.Source != "nope" {
		t.Fatalf("expected UnknownSourceError, got %v", err)
	}
}

func TestDownloadAppInfosBestEffortResources(t *testing.T) {
	f := newFixture(t)
	f.publishApp(paths.OfficialSource, "pc-nrfconnect-ble", "1.0.0")
	f.publishApp(paths.OfficialSource, "pc-nrfconnect-ppk", "3.0.0")
	f.publishManifest(paths.OfficialSource, "pc-nrfconnect-ble", "pc-nrfconnect-ppk")
	f.serve("/official/pc-nrfconnect-ble.svg", []byte("<svg/>"))
	f.serve("/official/pc-nrfconnect-ble-Changelog.md", []byte("## 1.0.0\n- first"))

	f.sync()

	if ok, _ := paths.FileExists(f.layout.AppIconFile(paths.OfficialSource, "pc-nrfconnect-ble")); !ok {
		t.Fatal("expected icon to be downloaded")
	}
	if ok, _ := paths.FileExists(f.layout.AppIconFile(paths.OfficialSource, "pc-nrfconnect-ppk")); ok {
		t.Fatal("missing icon must not create a file")
	}
	if ok, _ := paths.FileExists(f.layout.AppInfoFile(paths.OfficialSource, "pc-nrfconnect-ppk")); !ok {
		t.Fatal("app info must be written even when its icon is missing")
	}

	inv := f.inventory()
	ble, ok := findApp(inv.Apps, "pc-nrfconnect-ble").(*UninstalledDownloadableApp)
	if !ok {
		t.Fatalf("expected uninstalled ble, got %+v", inv.Apps)
	}
	if !strings.Contains(ble.ReleaseNotes, "first") || ble.IconPath == "" {
		t.Fatalf("expected release notes and icon, got %+v", ble)
	}
}

func TestDownloadAppInfosNameMismatch(t *testing.T) {
	f := newFixture(t)
	info := f.publishApp(paths.OfficialSource, "pc-nrfconnect-ble", "1.0.0")
	info.Name = "something-else"
	f.serveJSON("/official/pc-nrfconnect-ble.json", info)
	f.publishManifest(paths.OfficialSource, "pc-nrfconnect-ble")

	report, appErrs, err := f.svc.UpdateAll(context.Background())
	if err != nil {
		t.Fatalf("UpdateAll: %v", err)
	}
	if len(report.Succeeded) != 1 {
		t.Fatalf("expected the manifest to sync, got %+v", report)
	}
	if len(appErrs) != 1 || appErrs[0].Name != "pc-nrfconnect-ble" {
		t.Fatalf("expected one app error, got %+v", appErrs)
	}
	if len(f.notifications()) != 1 {
		t.Fatalf("expected one notification, got %v", f.notifications())
	}
	if _, err := os.Stat(f.layout.AppInfoFile(paths.OfficialSource, "something-else")); !os.IsNotExist(err) {
		t.Fatal("mismatched app info must not be written")
	}
}

func TestAddSource(t *testing.T) {
	f := newFixture(t)
	f.publishApp("beta", "pc-nrfconnect-beta", "0.1.0")
	f.publishManifest("beta", "pc-nrfconnect-beta")

	result, err := f.svc.AddSource(context.Background(), f.url("/beta/source.json"))
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if result.Source.Name != "beta" || len(result.Apps) != 1 || len(result.AppsWithErrors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok, _ := f.svc.Registry.Get("beta"); !ok {
		t.Fatal("expected beta to be registered")
	}

	var file appspec.VersionedSources
	if err := jsonfile.Read(f.layout.SourcesFile, &file); err != nil || len(file.V1) != 1 {
		t.Fatalf("expected beta to be persisted, got %+v %v", file, err)
	}

	if err := f.svc.RemoveSource("beta"); err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}
	if ok, _ := paths.DirExists(f.layout.SourceDir("beta")); ok {
		t.Fatal("expected source directory to be removed")
	}
}

func TestAddSourceRejectsOfficialName(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.AddSource(context.Background(), f.url("/official/source.json")); err == nil {
		t.Fatal("expected adding a second official source to fail")
	}
}
