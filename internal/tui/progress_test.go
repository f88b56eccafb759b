package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"launcher/internal/sources"
	"launcher/pkg/appspec"
)

func newTestModel() ProgressModel {
	m := NewProgressModel("test", "Syncing", []Column{
		{Header: "SOURCE", Width: 8},
		{Header: "STATUS", Width: 11},
		{Header: "URL", Width: 20},
	})
	m.AddRow("official", []string{"official", "pending", "https://a/source.json"})
	m.AddRow("beta", []string{"beta", "pending", "https://b/source.json"})
	return m
}

func update(t *testing.T, m ProgressModel, msg tea.Msg) (ProgressModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(ProgressModel), cmd
}

func TestRowUpdateMsg(t *testing.T) {
	m, _ := update(t, newTestModel(), RowUpdateMsg{
		Key:    "official",
		Fields: map[string]string{"STATUS": "downloading"},
	})

	if m.rows[0].Fields[1] != "downloading" {
		t.Errorf("expected STATUS=downloading, got %q", m.rows[0].Fields[1])
	}
	if m.rows[1].Fields[1] != "pending" {
		t.Errorf("expected second row untouched, got %q", m.rows[1].Fields[1])
	}
}

func TestRowUpdateMsgUnknownKey(t *testing.T) {
	m, _ := update(t, newTestModel(), RowUpdateMsg{
		Key:    "missing",
		Fields: map[string]string{"STATUS": "synced"},
	})
	for _, row := range m.rows {
		if row.Fields[1] != "pending" {
			t.Fatalf("expected rows unchanged, got %+v", m.rows)
		}
	}
}

func TestWorkDoneMsg(t *testing.T) {
	m, cmd := update(t, newTestModel(), WorkDoneMsg{})
	if !m.Done() {
		t.Error("expected Done() after WorkDoneMsg")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestErrorMsg(t *testing.T) {
	boom := errors.New("boom")
	m, cmd := update(t, newTestModel(), ErrorMsg{Err: boom})
	if !m.Done() || !errors.Is(m.Err(), boom) {
		t.Fatalf("expected done with error, got done=%v err=%v", m.Done(), m.Err())
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
	if !strings.Contains(m.View(), "Error: boom") {
		t.Errorf("expected error view, got %q", m.View())
	}
}

func TestViewShowsRowsAndFooter(t *testing.T) {
	m, _ := update(t, newTestModel(), RowUpdateMsg{
		Key:    "beta",
		Fields: map[string]string{"STATUS": "synced"},
	})
	view := m.View()

	for _, want := range []string{"SOURCE", "STATUS", "official", "beta", "synced", "Syncing 1/2..."} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestViewHidesFooterWhenDone(t *testing.T) {
	m, _ := update(t, newTestModel(), WorkDoneMsg{})
	if strings.Contains(m.View(), "Syncing") {
		t.Errorf("expected no footer once done:\n%s", m.View())
	}
}

func TestProgressCounts(t *testing.T) {
	m := newTestModel()
	m, _ = update(t, m, RowUpdateMsg{Key: "official", Fields: map[string]string{"STATUS": "failed"}})
	m, _ = update(t, m, RowUpdateMsg{Key: "beta", Fields: map[string]string{"STATUS": "downloading"}})

	processed, total := m.progressCounts()
	if processed != 1 || total != 2 {
		t.Fatalf("expected 1/2, got %d/%d", processed, total)
	}
}

func TestProgressCountsWithoutStatusColumn(t *testing.T) {
	m := NewProgressModel("", "", []Column{{Header: "NAME", Width: 4}})
	m.AddRow("a", []string{"a"})
	processed, total := m.progressCounts()
	if processed != 0 || total != 1 {
		t.Fatalf("expected 0/1, got %d/%d", processed, total)
	}
	if !strings.Contains(m.View(), "Working 0/1...") {
		t.Errorf("expected default verb in footer:\n%s", m.View())
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := newTestModel()
	m, cmd := update(t, m, tickMsg{})
	if cmd == nil || m.tick != 1 {
		t.Fatalf("expected another tick to be scheduled, tick=%d", m.tick)
	}
	m, _ = update(t, m, WorkDoneMsg{})
	if _, cmd = update(t, m, tickMsg{}); cmd != nil {
		t.Fatal("expected ticking to stop once done")
	}
}

func TestCtrlC(t *testing.T) {
	m, cmd := update(t, newTestModel(), tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.Done() || cmd == nil {
		t.Fatal("expected ctrl+c to quit")
	}
}

func TestNonEmptyOrDash(t *testing.T) {
	if NonEmptyOrDash("  ") != "-" {
		t.Error("expected dash for blank")
	}
	if NonEmptyOrDash(" x ") != "x" {
		t.Error("expected trimmed value")
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 3, "hel"},
		{"hello", 0, ""},
	}
	for _, tc := range cases {
		if got := TruncateWithEllipsis(tc.in, tc.max); got != tc.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestSyncModelAndReporter(t *testing.T) {
	m := NewSyncModel([]appspec.Source{
		{Name: "official", URL: "https://a/source.json"},
		{Name: "beta", URL: "https://b/source.json"},
	})
	if len(m.rows) != 2 || m.rows[1].Fields[1] != string(sources.SyncPending) {
		t.Fatalf("expected two pending rows, got %+v", m.rows)
	}

	var msgs []tea.Msg
	report := SyncReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })
	report(appspec.Source{Name: "beta"}, sources.SyncFailed, errors.New("404"))

	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	m, _ = update(t, m, msgs[0])
	if m.rows[1].Fields[1] != "failed" || m.rows[1].Fields[3] != "404" {
		t.Fatalf("expected failed row with error, got %+v", m.rows[1])
	}
}

func TestDetectMode(t *testing.T) {
	var buf bytes.Buffer
	if DetectMode(&buf, false, true) != ModeJSON {
		t.Error("expected json mode")
	}
	if DetectMode(&buf, true, false) != ModePlain {
		t.Error("expected plain mode when progress is disabled")
	}
	if DetectMode(&buf, false, false) != ModePlain {
		t.Error("expected plain mode for a non-file writer")
	}
}

func TestStatusWriterRender(t *testing.T) {
	sw := &StatusWriter{label: "install", done: make(chan struct{})}
	Phase[string](sw)("downloading")
	line := sw.render(0)
	if !strings.Contains(line, "install: downloading") {
		t.Fatalf("unexpected status line %q", line)
	}
	var buf bytes.Buffer
	sw.w = &buf
	sw.Stop()
	sw.Stop()
	if buf.String() != "\r\033[K" {
		t.Fatalf("expected a single clear sequence, got %q", buf.String())
	}
}
