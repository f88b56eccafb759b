package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"launcher/internal/archive/archivetest"
)

func TestUntarStripsPackagePrefix(t *testing.T) {
	dir := t.TempDir()
	tarball := filepath.Join(dir, "app-1.0.0.tgz")
	archivetest.WriteTarGz(t, tarball, map[string]string{
		"package.json":       `{"name":"app","version":"1.0.0"}`,
		"dist/bundle.js":     "console.log(1)",
		"resources/icon.png": "png",
	})

	dest := filepath.Join(dir, "out")
	if err := Untar(tarball, dest, 1); err != nil {
		t.Fatalf("Untar: %v", err)
	}

	for _, rel := range []string{"package.json", "dist/bundle.js", "resources/icon.png"} {
		if _, err := os.Stat(filepath.Join(dest, rel)); err != nil {
			t.Errorf("expected %s to be extracted: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "package")); !os.IsNotExist(err) {
		t.Errorf("expected package/ prefix to be stripped")
	}
}

func TestUntarRejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := "evil"
	if err := tw.WriteHeader(&tar.Header{Name: "package/../../evil.txt", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	tw.Write([]byte(body))
	tw.Close()
	gz.Close()

	dir := t.TempDir()
	tarball := filepath.Join(dir, "evil.tgz")
	os.WriteFile(tarball, buf.Bytes(), 0o644)

	if err := Untar(tarball, filepath.Join(dir, "out"), 1); err == nil {
		t.Fatal("expected escaping entry to be rejected")
	}
}

func TestUntarNotGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.tgz")
	os.WriteFile(path, []byte("not a tarball"), 0o644)
	if err := Untar(path, filepath.Join(dir, "out"), 1); err == nil {
		t.Fatal("expected error for non-gzip input")
	}
}

func TestShasum(t *testing.T) {
	// sha1("hello")
	const want = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	if got := Shasum([]byte("hello")); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	path := filepath.Join(t.TempDir(), "f")
	os.WriteFile(path, []byte("hello"), 0o644)
	sum, ok, err := VerifyShasum(path, "AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D")
	if err != nil || !ok || sum != want {
		t.Fatalf("expected case-insensitive match, got %s %v %v", sum, ok, err)
	}
	if _, ok, _ := VerifyShasum(path, "deadbeef"); ok {
		t.Fatal("expected mismatch")
	}
}

func TestMoveDirReplacesDestination(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "node_modules", "app")
	os.MkdirAll(filepath.Join(src, "sub"), 0o755)
	os.WriteFile(filepath.Join(src, "sub", "a.txt"), []byte("new"), 0o644)
	os.MkdirAll(dst, 0o755)
	os.WriteFile(filepath.Join(dst, "stale.txt"), []byte("old"), 0o644)

	if err := MoveDir(src, dst); err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "stale.txt")); !os.IsNotExist(err) {
		t.Fatal("expected stale content to be replaced")
	}
	data, err := os.ReadFile(filepath.Join(dst, "sub", "a.txt"))
	if err != nil || string(data) != "new" {
		t.Fatalf("expected moved content, got %q (%v)", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source to be gone")
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")
	os.MkdirAll(filepath.Join(src, "a", "b"), 0o755)
	os.WriteFile(filepath.Join(src, "a", "b", "c.txt"), []byte("deep"), 0o644)

	if err := copyTree(src, dst); err != nil {
		t.Fatalf("copyTree: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "a", "b", "c.txt"))
	if err != nil || string(data) != "deep" {
		t.Fatalf("expected copied file, got %q (%v)", data, err)
	}
}
