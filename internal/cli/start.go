package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"launcher/internal/apps"
	"launcher/internal/paths"
	"launcher/internal/sources"
)

var (
	startSkipUpdate bool
	startSource     string
	startOfficial   string
	startLocal      string
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the startup sequence and optionally resolve an app to open",
		Args:  cobra.NoArgs,
		RunE:  runStart,
	}
	cmd.Flags().BoolVar(&startSkipUpdate, "skip-update-apps", false, "Do not sync sources before building the inventory")
	cmd.Flags().StringVar(&startSource, "source", paths.OfficialSource, "Source of the app named by --open-official-app")
	cmd.Flags().StringVar(&startOfficial, "open-official-app", "", "Resolve an installed downloadable app")
	cmd.Flags().StringVar(&startLocal, "open-local-app", "", "Resolve a local app")
	cmd.MarkFlagsMutuallyExclusive("open-official-app", "open-local-app")
	return cmd
}

// startResult is what a window manager needs to open an app.
type startResult struct {
	Migrated     bool                  `json:"migrated"`
	Sync         *sources.SyncReport   `json:"sync,omitempty"`
	Apps         int                   `json:"apps"`
	LocalApps    int                   `json:"localApps"`
	SourceErrors []sources.SourceError `json:"sourcesWithErrors"`
	AppErrors    []apps.AppError       `json:"appsWithErrors"`
	Open         apps.App              `json:"open,omitempty"`
	OpenPath     string                `json:"openPath,omitempty"`
}

func runStart(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := commandContext(cmd)
	result := startResult{SourceErrors: []sources.SourceError{}, AppErrors: []apps.AppError{}}

	report, err := migrateAll(e)
	if err != nil {
		e.logf("migrate: %v", err)
	}
	result.Migrated = report.SourcesList || report.Apps > 0

	if !startSkipUpdate && !e.cfg.Sync.SkipUpdateApps {
		sync, appErrs, err := syncSources(cmd, e, outputJSON)
		if err != nil {
			return err
		}
		result.Sync = &sync
		result.SourceErrors = append(result.SourceErrors, sync.Failed...)
		result.AppErrors = append(result.AppErrors, appErrs...)
	}

	inv, err := e.service.DownloadableApps(ctx)
	if err != nil {
		return err
	}
	local, localErrs, err := e.service.LocalApps(true)
	if err != nil {
		return err
	}
	result.Apps = len(inv.Apps)
	result.LocalApps = len(local)
	result.SourceErrors = append(result.SourceErrors, inv.SourcesWithErrors...)
	result.AppErrors = append(result.AppErrors, inv.AppsWithErrors...)
	result.AppErrors = append(result.AppErrors, localErrs...)

	switch {
	case startOfficial != "":
		app, err := e.service.DownloadableApp(ctx, apps.AppSpec{Source: startSource, Name: startOfficial})
		if err != nil {
			return err
		}
		path, err := openablePath(app)
		if err != nil {
			return err
		}
		result.Open, result.OpenPath = app, path
	case startLocal != "":
		app, err := findLocal(local, startLocal)
		if err != nil {
			return err
		}
		result.Open, result.OpenPath = app, app.Path
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	out := cmd.OutOrStdout()
	if result.Sync != nil {
		printSyncSummary(out, *result.Sync)
	}
	fmt.Fprintf(out, "%s %d downloadable, %d local\n", boldStyle.Render("Apps:"), result.Apps, result.LocalApps)
	writeSourceErrors(cmd.ErrOrStderr(), result.SourceErrors)
	writeAppErrors(cmd.ErrOrStderr(), result.AppErrors)
	if result.OpenPath != "" {
		fmt.Fprintf(out, "%s %s\n", boldStyle.Render("Open:"), result.OpenPath)
	}
	return nil
}

var errNotInstalled = errors.New("app is not installed")

func openablePath(app apps.App) (string, error) {
	switch a := app.(type) {
	case *apps.InstalledDownloadableApp:
		return a.Path, nil
	case *apps.WithdrawnApp:
		return a.Path, nil
	default:
		return "", fmt.Errorf("%s: %w", app.Spec(), errNotInstalled)
	}
}

func findLocal(local []*apps.LocalApp, name string) (*apps.LocalApp, error) {
	for _, app := range local {
		if app.Name == name {
			return app, nil
		}
	}
	return nil, fmt.Errorf("local app %s: %w", name, errNotInstalled)
}
