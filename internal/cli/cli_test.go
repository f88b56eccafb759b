package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"launcher/internal/archive"
	"launcher/internal/archive/archivetest"
	"launcher/pkg/appspec"
)

type cliFixture struct {
	t      *testing.T
	root   string
	config string
	server *httptest.Server
	files  map[string][]byte
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	f := &cliFixture{t: t, root: t.TempDir(), files: map[string][]byte{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := f.files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(f.server.Close)

	f.config = filepath.Join(t.TempDir(), "launcher.yaml")
	cfg := "official_source_url: " + f.server.URL + "/official/source.json\n"
	if err := os.WriteFile(f.config, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *cliFixture) serveJSON(path string, v any) {
	f.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		f.t.Fatal(err)
	}
	f.files[path] = data
}

// publish serves an official source holding one app with the given versions.
func (f *cliFixture) publish(name string, versions ...string) {
	f.t.Helper()
	info := appspec.AppInfo{
		Name:          name,
		DisplayName:   "Display " + name,
		Description:   "about " + name,
		LatestVersion: versions[len(versions)-1],
		Versions:      map[string]appspec.AppVersion{},
	}
	for _, v := range versions {
		path := "/official/" + name + "-" + v + ".tgz"
		data := archivetest.TarGz(f.t, map[string]string{
			"package.json": `{"name":"` + name + `","version":"` + v + `"}`,
		})
		f.files[path] = data
		info.Versions[v] = appspec.AppVersion{TarballURL: f.server.URL + path, Shasum: archive.Shasum(data)}
	}
	f.serveJSON("/official/"+name+".json", info)
	f.serveJSON("/official/source.json", appspec.SourceJSON{
		Name: "official",
		Apps: []string{f.server.URL + "/official/" + name + ".json"},
	})
}

func (f *cliFixture) run(args ...string) (string, string, error) {
	f.t.Helper()
	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--apps-root-dir", f.root, "--config", f.config}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (f *cliFixture) mustRun(args ...string) string {
	f.t.Helper()
	out, stderr, err := f.run(args...)
	if err != nil {
		f.t.Fatalf("%v: %v\nstderr: %s", args, err, stderr)
	}
	return out
}

func TestSyncAndListApps(t *testing.T) {
	f := newCLIFixture(t)
	f.publish("pc-nrfconnect-ble", "1.0.0")

	var synced struct {
		Succeeded []appspec.Source `json:"succeeded"`
		Failed    []any            `json:"failed"`
	}
	if err := json.Unmarshal([]byte(f.mustRun("--json", "sources", "sync")), &synced); err != nil {
		t.Fatalf("decode sync output: %v", err)
	}
	if len(synced.Succeeded) != 1 || synced.Succeeded[0].Name != "official" || len(synced.Failed) != 0 {
		t.Fatalf("unexpected sync report %+v", synced)
	}

	out := f.mustRun("apps", "list")
	if !strings.Contains(out, "pc-nrfconnect-ble") || !strings.Contains(out, "uninstalled") {
		t.Fatalf("expected uninstalled app in table, got:\n%s", out)
	}

	out = f.mustRun("sources", "list")
	if !strings.Contains(out, "official") || !strings.Contains(out, f.server.URL) {
		t.Fatalf("expected official source listed, got:\n%s", out)
	}
}

func TestInstallWithConstraintAndStart(t *testing.T) {
	f := newCLIFixture(t)
	f.publish("pc-nrfconnect-ble", "1.0.0", "1.1.0", "2.0.0")
	f.mustRun("sources", "sync")

	out := f.mustRun("apps", "install", "official", "pc-nrfconnect-ble", "--version", "^1.0")
	if !strings.Contains(out, "installed official/pc-nrfconnect-ble") {
		t.Fatalf("unexpected install output %q", out)
	}

	info := f.mustRun("apps", "info", "official", "pc-nrfconnect-ble")
	if !strings.Contains(info, "1.1.0") || !strings.Contains(info, "Upgrade available") {
		t.Fatalf("expected 1.1.0 with upgrade, got:\n%s", info)
	}

	var started startResultJSON
	out = f.mustRun("--json", "start", "--skip-update-apps", "--open-official-app", "pc-nrfconnect-ble")
	if err := json.Unmarshal([]byte(out), &started); err != nil {
		t.Fatalf("decode start output: %v\n%s", err, out)
	}
	want := filepath.Join(f.root, "node_modules", "pc-nrfconnect-ble")
	if started.OpenPath != want || started.Apps != 1 {
		t.Fatalf("expected open path %s, got %+v", want, started)
	}

	f.mustRun("apps", "remove", "official", "pc-nrfconnect-ble")
	if _, _, err := f.run("start", "--skip-update-apps", "--open-official-app", "pc-nrfconnect-ble"); err == nil {
		t.Fatal("expected start to refuse an uninstalled app")
	}
}

type startResultJSON struct {
	Apps     int    `json:"apps"`
	OpenPath string `json:"openPath"`
}

func TestRemoveOfficialSourceRefused(t *testing.T) {
	f := newCLIFixture(t)
	_, _, err := f.run("sources", "remove", "official")
	if err == nil || !strings.Contains(err.Error(), "cannot be removed") {
		t.Fatalf("expected refusal, got %v", err)
	}
}

func TestInstallLocalBadArchiveName(t *testing.T) {
	f := newCLIFixture(t)
	archivePath := filepath.Join(t.TempDir(), "noversion.tgz")
	archivetest.WriteTarGz(t, archivePath, map[string]string{"package.json": `{"name":"x","version":"1.0.0"}`})

	_, _, err := f.run("apps", "install-local", archivePath)
	if err == nil || !strings.Contains(err.Error(), "bad-archive-name") {
		t.Fatalf("expected bad archive name failure, got %v", err)
	}
}

func TestInstallLocalAndListLocal(t *testing.T) {
	f := newCLIFixture(t)
	archivePath := filepath.Join(t.TempDir(), "my-app-1.2.3.tgz")
	archivetest.WriteTarGz(t, archivePath, map[string]string{"package.json": `{"name":"my-app","version":"1.2.3"}`})

	f.mustRun("apps", "install-local", archivePath)
	out := f.mustRun("apps", "list", "--local")
	if !strings.Contains(out, "my-app") || !strings.Contains(out, "1.2.3") {
		t.Fatalf("expected local app listed, got:\n%s", out)
	}

	if _, _, err := f.run("apps", "install-local", archivePath); err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected exists error, got %v", err)
	}
	f.mustRun("apps", "install-local", "--overwrite", archivePath)
	f.mustRun("apps", "remove-local", "my-app")
	if _, err := os.Stat(filepath.Join(f.root, "local", "my-app")); !os.IsNotExist(err) {
		t.Fatalf("expected local app removed, stat err %v", err)
	}
}

func TestWatchRequiresLocal(t *testing.T) {
	f := newCLIFixture(t)
	if _, _, err := f.run("apps", "list", "--watch"); err == nil {
		t.Fatal("expected --watch without --local to fail")
	}
}

func TestMigrateNothing(t *testing.T) {
	f := newCLIFixture(t)
	out := f.mustRun("migrate")
	if !strings.Contains(out, "Nothing to migrate") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigValidate(t *testing.T) {
	f := newCLIFixture(t)
	if out := f.mustRun("config", "validate"); !strings.Contains(out, "OK") {
		t.Fatalf("expected clean config, got %q", out)
	}

	os.WriteFile(f.config, []byte("sync:\n  concurrency: -2\n"), 0o644)
	out, _, err := f.run("config", "validate")
	if err == nil || !strings.Contains(out, "sync.concurrency") {
		t.Fatalf("expected concurrency error, got err=%v out=%q", err, out)
	}
	if _, _, err := f.run("sources", "list"); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected commands to refuse invalid config, got %v", err)
	}
}

func TestResolveVersion(t *testing.T) {
	info := appspec.AppInfo{Name: "app", Versions: map[string]appspec.AppVersion{
		"1.0.0": {}, "1.4.2": {}, "2.0.0": {}, "nightly": {},
	}}
	cases := []struct {
		requested string
		want      string
		wantErr   bool
	}{
		{"", "", false},
		{"nightly", "nightly", false},
		{"1.0.0", "1.0.0", false},
		{"~1", "1.4.2", false},
		{">=2", "2.0.0", false},
		{"^3", "", true},
		{"not a version", "", true},
	}
	for _, tc := range cases {
		got, err := resolveVersion(info, tc.requested)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("resolveVersion(%q) = %q, %v; want %q (err %v)", tc.requested, got, err, tc.want, tc.wantErr)
		}
	}
}
