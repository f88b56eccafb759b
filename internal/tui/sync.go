package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"launcher/internal/sources"
	"launcher/pkg/appspec"
)

// SyncColumns lays out the table shown while sources are refreshed.
var SyncColumns = []Column{
	{Header: "SOURCE", Width: 16},
	{Header: "STATUS", Width: 11},
	{Header: "URL", Width: 48},
	{Header: "ERROR", Width: 32},
}

// NewSyncModel returns a progress model with one pending row per source.
func NewSyncModel(srcs []appspec.Source) ProgressModel {
	m := NewProgressModel("Updating sources", "Syncing", SyncColumns)
	for _, src := range srcs {
		m.AddRow(src.Name, []string{src.Name, string(sources.SyncPending), src.URL, "-"})
	}
	return m
}

// SyncReporter turns sync progress callbacks into row updates.
func SyncReporter(send func(tea.Msg)) func(appspec.Source, sources.SyncState, error) {
	return func(src appspec.Source, state sources.SyncState, err error) {
		fields := map[string]string{"STATUS": string(state)}
		if err != nil {
			fields["ERROR"] = NonEmptyOrDash(err.Error())
		}
		send(RowUpdateMsg{Key: src.Name, Fields: fields})
	}
}
