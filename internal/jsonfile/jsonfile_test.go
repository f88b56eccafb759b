package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name string   `json:"name"`
	Apps []string `json:"apps"`
}

func TestWriteReadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "source.json")
	if err := Write(path, doc{Name: "official", Apps: []string{"a"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got doc
	if err := Read(path, &got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Name != "official" || len(got.Apps) != 1 {
		t.Fatalf("unexpected document %+v", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestReadOrMissing(t *testing.T) {
	got := doc{Name: "default"}
	found, err := ReadOr(filepath.Join(t.TempDir(), "missing.json"), &got)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found {
		t.Fatal("expected found=false")
	}
	if got.Name != "default" {
		t.Fatalf("expected value untouched, got %q", got.Name)
	}
}

func TestReadOrInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	var got doc
	if _, err := ReadOr(path, &got); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestWriteTextOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := WriteText(path, "one"); err != nil {
		t.Fatal(err)
	}
	if err := WriteText(path, "two"); err != nil {
		t.Fatal(err)
	}
	got, err := ReadText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "two" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}
