package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"launcher/internal/apps"
	"launcher/internal/sources"
	"launcher/internal/tui"
	"launcher/pkg/appspec"
)

var syncNoProgress bool

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List, add, remove and sync app sources",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		Args:  cobra.NoArgs,
		RunE:  runSourcesList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <url>",
		Short: "Register the source whose manifest is at url",
		Args:  cobra.ExactArgs(1),
		RunE:  runSourcesAdd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a source and every app installed from it",
		Args:  cobra.ExactArgs(1),
		RunE:  runSourcesRemove,
	})
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Download every source manifest and its app metadata",
		Args:  cobra.NoArgs,
		RunE:  runSourcesSync,
	}
	syncCmd.Flags().BoolVar(&syncNoProgress, "no-progress", false, "Disable the live progress table")
	cmd.AddCommand(syncCmd)
	return cmd
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	all, err := e.service.Registry.All()
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), all)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tURL")
	for _, src := range all {
		fmt.Fprintf(w, "%s\t%s\n", src.Name, src.URL)
	}
	return w.Flush()
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.service.AddSource(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added source %s with %d apps\n", boldStyle.Render(result.Source.Name), len(result.Apps))
	writeAppErrors(cmd.ErrOrStderr(), result.AppsWithErrors)
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if sources.IsReserved(args[0]) {
		return fmt.Errorf("source %q is built in and cannot be removed", args[0])
	}
	if err := e.service.RemoveSource(args[0]); err != nil {
		return err
	}
	if !outputJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed source %s\n", args[0])
	}
	return nil
}

type syncOutput struct {
	sources.SyncReport
	AppsWithErrors []apps.AppError `json:"appsWithErrors"`
}

func runSourcesSync(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	report, appErrs, err := syncSources(cmd, e, syncNoProgress)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), syncOutput{SyncReport: report, AppsWithErrors: appErrs})
	}
	printSyncSummary(cmd.OutOrStdout(), report)
	writeSourceErrors(cmd.ErrOrStderr(), report.Failed)
	writeAppErrors(cmd.ErrOrStderr(), appErrs)
	return nil
}

// syncSources refreshes all sources, rendering a progress table when the
// output is an interactive terminal.
func syncSources(cmd *cobra.Command, e *env, noProgress bool) (sources.SyncReport, []apps.AppError, error) {
	svc := e.service
	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, noProgress, outputJSON)
	if mode != tui.ModeTUI {
		return svc.UpdateAll(cmd.Context())
	}

	all, err := svc.Registry.All()
	if err != nil {
		return sources.SyncReport{}, nil, err
	}

	var (
		report  sources.SyncReport
		appErrs []apps.AppError
		syncErr error
	)
	work := func(send func(tea.Msg)) {
		syncer := *svc.Syncer
		syncer.OnProgress = tui.SyncReporter(send)
		scoped := *svc
		scoped.Syncer = &syncer
		report, appErrs, syncErr = scoped.UpdateAll(cmd.Context())
	}
	e.logf("starting sync of %s", strings.Join(sourceNames(all), ", "))
	if err := tui.RunWithWork(out, tui.NewSyncModel(all), work); err != nil {
		return report, appErrs, err
	}
	return report, appErrs, syncErr
}

func sourceNames(srcs []appspec.Source) []string {
	names := make([]string, len(srcs))
	for i, src := range srcs {
		names[i] = src.Name
	}
	return names
}
