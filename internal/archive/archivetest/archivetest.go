// Package archivetest builds npm-style tarballs for tests.
package archivetest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"sort"
	"testing"
)

// TarGz returns a gzip'd tar holding files under a package/ prefix, the
// layout npm pack produces.
func TarGz(t testing.TB, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		body := files[name]
		hdr := &tar.Header{
			Name:     "package/" + name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("write tar body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

// WriteTarGz writes TarGz output to path.
func WriteTarGz(t testing.TB, path string, files map[string]string) []byte {
	t.Helper()
	data := TarGz(t, files)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write tarball: %v", err)
	}
	return data
}
