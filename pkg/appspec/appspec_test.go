package appspec

import (
	"errors"
	"reflect"
	"testing"
)

func TestNameFromArchive(t *testing.T) {
	name, err := NameFromArchive("/path/to/my-package-1.2.3.tgz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "my-package" {
		t.Fatalf("expected my-package, got %q", name)
	}
}

func TestNameFromArchiveUnrecognized(t *testing.T) {
	for _, input := range []string{"(invalid)", "/path/to/package.tgz", "-1.0.0.tgz"} {
		if _, err := NameFromArchive(input); !errors.Is(err, ErrUnrecognizedArchiveName) {
			t.Errorf("%q: expected ErrUnrecognizedArchiveName, got %v", input, err)
		}
	}
}

func TestNameFromArchiveUsesLastDash(t *testing.T) {
	name, err := NameFromArchive("pc-nrfconnect-ble-4.0.0-alpha.tgz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "pc-nrfconnect-ble-4.0.0" {
		t.Fatalf("expected last-dash split, got %q", name)
	}
}

func TestAppNameFromURL(t *testing.T) {
	got := AppNameFromURL("https://example.com/apps/pc-nrfconnect-ble.json?x=1")
	if got != "pc-nrfconnect-ble" {
		t.Fatalf("expected pc-nrfconnect-ble, got %q", got)
	}
}

func TestSiblingURL(t *testing.T) {
	got := SiblingURL("https://example.com/3rdparty/apps.json", "source.json")
	if got != "https://example.com/3rdparty/source.json" {
		t.Fatalf("unexpected sibling url %q", got)
	}
}

func TestSortedVersions(t *testing.T) {
	info := AppInfo{Versions: map[string]AppVersion{
		"1.2.0":   {TarballURL: "a"},
		"1.10.0":  {TarballURL: "b"},
		"nightly": {TarballURL: "c"},
		"1.9.3":   {TarballURL: "d"},
	}}
	want := []string{"1.10.0", "1.9.3", "1.2.0", "nightly"}
	if got := info.SortedVersions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAppInfoValid(t *testing.T) {
	legacyArtifact := AppInfo{Name: "x", Installed: &InstallRecord{Path: "/a"}}
	if legacyArtifact.Valid() {
		t.Fatal("expected install-only record to be invalid")
	}
	if !(AppInfo{Name: "x", LatestVersion: "1.0.0"}).Valid() {
		t.Fatal("expected app with latest version to be valid")
	}
}

func TestValidateSourceJSON(t *testing.T) {
	if err := ValidateSourceJSON([]byte(`{"name":"beta","apps":["https://x/a.json"]}`)); err != nil {
		t.Fatalf("expected valid manifest, got %v", err)
	}
	err := ValidateSourceJSON([]byte(`{"name":"beta"}`))
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Document != "source.json" {
		t.Fatalf("unexpected document %q", verr.Document)
	}
}

func TestValidateAppInfo(t *testing.T) {
	valid := `{"name":"a","latestVersion":"1.0.0","versions":{"1.0.0":{"tarballUrl":"https://x/a.tgz","shasum":"abc"}}}`
	if err := ValidateAppInfo([]byte(valid)); err != nil {
		t.Fatalf("expected valid app info, got %v", err)
	}
	if err := ValidateAppInfo([]byte(`{"versions":{"1.0.0":{}}}`)); err == nil {
		t.Fatal("expected schema failure")
	}
	if err := ValidateAppInfo([]byte(`not json`)); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestValidatePackageJSON(t *testing.T) {
	err := ValidatePackageJSON(PackageJSON{})
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(errs.Issues()) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(errs.Issues()))
	}
}

func TestCheckName(t *testing.T) {
	for _, name := range []string{"", ".", "..", "../../victim", `a\b`, "a/b"} {
		if err := CheckName(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("CheckName(%q) = %v, want ErrInvalidName", name, err)
		}
	}
	for _, name := range []string{"beta", "pc-nrfconnect-ble", "v1.2"} {
		if err := CheckName(name); err != nil {
			t.Errorf("CheckName(%q) = %v, want nil", name, err)
		}
	}
}

func TestSchemasRejectPathLikeNames(t *testing.T) {
	for _, name := range []string{".", "..", "../../victim", `a\\b`} {
		if err := ValidateSourceJSON([]byte(`{"name":"` + name + `","apps":[]}`)); err == nil {
			t.Errorf("expected source.json named %q to fail validation", name)
		}
		if err := ValidateAppInfo([]byte(`{"name":"` + name + `","latestVersion":"1.0.0"}`)); err == nil {
			t.Errorf("expected app info named %q to fail validation", name)
		}
	}
}
