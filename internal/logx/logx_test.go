package logx

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"launcher/internal/paths"
)

func TestNewWritesToLogsDirAndMirror(t *testing.T) {
	layout := paths.New(t.TempDir())
	var mirror bytes.Buffer

	logger, closer, err := New(layout, &mirror)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Printf("synced %d sources", 3)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(layout.LogsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".log") {
		t.Fatalf("expected one log file, got %v", entries)
	}
	if !strings.Contains(mirror.String(), "synced 3 sources") {
		t.Fatalf("expected mirrored line, got %q", mirror.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) != Discard {
		t.Fatal("expected Discard for nil logger")
	}
}
