package apps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"launcher/internal/archive"
	"launcher/internal/archive/archivetest"
	"launcher/internal/fetch"
	"launcher/internal/notify"
	"launcher/internal/paths"
	"launcher/internal/sources"
	"launcher/pkg/appspec"
)

type fixture struct {
	t      *testing.T
	svc    *Service
	layout paths.Layout
	server *httptest.Server

	mu    sync.Mutex
	files map[string][]byte
	notes []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, files: map[string][]byte{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		body, ok := f.files[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(f.server.Close)

	client, err := fetch.New(fetch.Options{})
	if err != nil {
		t.Fatalf("fetch.New: %v", err)
	}
	f.layout = paths.New(t.TempDir())
	if err := f.layout.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	registry := sources.NewRegistry(f.layout, f.url("/official/source.json"))
	f.svc = NewService(f.layout, registry, client, nil)
	f.svc.TempDir = t.TempDir()
	f.svc.Notifier = notify.Func(func(title, message string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.notes = append(f.notes, title+": "+message)
	})
	f.publishManifest(paths.OfficialSource)
	return f
}

func (f *fixture) url(path string) string {
	return f.server.URL + path
}

func (f *fixture) serve(path string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = body
}

func (f *fixture) serveJSON(path string, v any) {
	f.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		f.t.Fatal(err)
	}
	f.serve(path, data)
}

func (f *fixture) notifications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notes...)
}

func (f *fixture) appURL(source, name string) string {
	return f.url("/" + source + "/" + name + ".json")
}

// publishManifest serves source.json of source listing apps.
func (f *fixture) publishManifest(source string, apps ...string) {
	urls := make([]string, 0, len(apps))
	for _, app := range apps {
		urls = append(urls, f.appURL(source, app))
	}
	f.serveJSON("/"+source+"/source.json", appspec.SourceJSON{Name: source, Apps: urls})
}

// publishApp serves a tarball per version and an app info pointing at them.
// The last version is the latest.
func (f *fixture) publishApp(source, name string, versions ...string) appspec.AppInfo {
	f.t.Helper()
	info := appspec.AppInfo{
		Name:            name,
		DisplayName:     strings.ToUpper(name),
		Description:     "description of " + name,
		IconURL:         f.url("/" + source + "/" + name + ".svg"),
		ReleaseNotesURL: f.url("/" + source + "/" + name + "-Changelog.md"),
		LatestVersion:   versions[len(versions)-1],
		Versions:        map[string]appspec.AppVersion{},
	}
	for _, v := range versions {
		tarPath := "/" + source + "/" + name + "-" + v + ".tgz"
		data := archivetest.TarGz(f.t, map[string]string{
			"package.json":  `{"name":"` + name + `","version":"` + v + `","displayName":"` + name + ` app"}`,
			"dist/main.js": "console.log('" + v + "')",
		})
		f.serve(tarPath, data)
		info.Versions[v] = appspec.AppVersion{TarballURL: f.url(tarPath), Shasum: archive.Shasum(data)}
	}
	f.serveJSON("/"+source+"/"+name+".json", info)
	return info
}

func (f *fixture) sync() {
	f.t.Helper()
	report, appErrs, err := f.svc.UpdateAll(context.Background())
	if err != nil {
		f.t.Fatalf("UpdateAll: %v", err)
	}
	if len(report.Failed) != 0 || len(appErrs) != 0 {
		f.t.Fatalf("unexpected sync errors %+v %+v", report.Failed, appErrs)
	}
}

func (f *fixture) inventory() Inventory {
	f.t.Helper()
	inv, err := f.svc.DownloadableApps(context.Background())
	if err != nil {
		f.t.Fatalf("DownloadableApps: %v", err)
	}
	return inv
}

func (f *fixture) install(name, version string) InstallResult {
	f.t.Helper()
	result, err := f.svc.Install(context.Background(), AppSpec{Source: paths.OfficialSource, Name: name}, InstallOptions{Version: version})
	if err != nil {
		f.t.Fatalf("Install: %v", err)
	}
	return result
}

func findApp(apps []App, name string) App {
	for _, app := range apps {
		if app.Spec().Name == name {
			return app
		}
	}
	return nil
}
