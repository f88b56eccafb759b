package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"launcher/internal/apps"
	"launcher/internal/sources"
	"launcher/internal/tui"
)

var (
	boldStyle   = lipgloss.NewStyle().Bold(true).Inline(true)
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)
)

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func writeSourceErrors(out io.Writer, errs []sources.SourceError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(out, redStyle.Render("Sources with errors:"))
	for _, e := range errs {
		fmt.Fprintf(out, "  - %s (%s): %s\n", e.Source.Name, e.Source.URL, e.Reason)
	}
}

func writeAppErrors(out io.Writer, errs []apps.AppError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(out, yellowStyle.Render("Apps with errors:"))
	for _, e := range errs {
		name := e.Name
		if name == "" {
			name = e.Path
		}
		fmt.Fprintf(out, "  - %s/%s: %s\n", e.Source, tui.NonEmptyOrDash(name), e.Reason)
	}
}

func printSyncSummary(out io.Writer, report sources.SyncReport) {
	fmt.Fprintf(out, "%s %s synced, %s failed\n",
		boldStyle.Render("Sources:"),
		greenStyle.Render(fmt.Sprint(len(report.Succeeded))),
		redStyle.Render(fmt.Sprint(len(report.Failed))),
	)
}
