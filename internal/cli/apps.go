package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"launcher/internal/apps"
	"launcher/internal/ipc"
	"launcher/internal/tui"
	"launcher/pkg/appspec"
)

var (
	appsListLocal     bool
	appsListWatch     bool
	installVersion    string
	installLocalForce bool
	installNoProgress bool
)

func newAppsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List, inspect, install and remove apps",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List downloadable apps, or local apps with --local",
		Args:  cobra.NoArgs,
		RunE:  runAppsList,
	}
	listCmd.Flags().BoolVar(&appsListLocal, "local", false, "List sideloaded apps")
	listCmd.Flags().BoolVar(&appsListWatch, "watch", false, "Relist local apps whenever the local directory changes")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "info <source> <name>",
		Short: "Show the metadata of one downloadable app",
		Args:  cobra.ExactArgs(2),
		RunE:  runAppsInfo,
	})

	installCmd := &cobra.Command{
		Use:   "install <source> <name>",
		Short: "Install or upgrade a downloadable app",
		Args:  cobra.ExactArgs(2),
		RunE:  runAppsInstall,
	}
	installCmd.Flags().StringVar(&installVersion, "version", "", "Version or semver constraint (default latest)")
	installCmd.Flags().BoolVar(&installNoProgress, "no-progress", false, "Disable the status line")
	cmd.AddCommand(installCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <source> <name>",
		Short: "Remove an installed downloadable app",
		Args:  cobra.ExactArgs(2),
		RunE:  runAppsRemove,
	})

	installLocalCmd := &cobra.Command{
		Use:   "install-local <archive>",
		Short: "Install a sideloaded app from a <name>-<version>.tgz archive",
		Args:  cobra.ExactArgs(1),
		RunE:  runAppsInstallLocal,
	}
	installLocalCmd.Flags().BoolVar(&installLocalForce, "overwrite", false, "Replace an existing local app of the same name")
	cmd.AddCommand(installLocalCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove-local <name>",
		Short: "Remove a sideloaded app",
		Args:  cobra.ExactArgs(1),
		RunE:  runAppsRemoveLocal,
	})
	return cmd
}

func runAppsList(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if appsListWatch && !appsListLocal {
		return fmt.Errorf("--watch requires --local")
	}
	if appsListLocal {
		if err := listLocalApps(cmd, e); err != nil {
			return err
		}
		if !appsListWatch {
			return nil
		}
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()
		return ipc.Watch(ctx, e.layout.LocalAppsDir, e.logger, func() {
			if err := listLocalApps(cmd, e); err != nil {
				e.logf("list local apps: %v", err)
			}
		})
	}

	inv, err := e.service.DownloadableApps(cmd.Context())
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), inv)
	}
	writeAppTable(cmd.OutOrStdout(), inv.Apps)
	writeSourceErrors(cmd.ErrOrStderr(), inv.SourcesWithErrors)
	writeAppErrors(cmd.ErrOrStderr(), inv.AppsWithErrors)
	return nil
}

func listLocalApps(cmd *cobra.Command, e *env) error {
	local, appErrs, err := e.service.LocalApps(true)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Apps           []*apps.LocalApp `json:"apps"`
			AppsWithErrors []apps.AppError  `json:"appsWithErrors"`
		}{local, appErrs})
	}
	list := make([]apps.App, len(local))
	for i, a := range local {
		list[i] = a
	}
	writeAppTable(cmd.OutOrStdout(), list)
	writeAppErrors(cmd.ErrOrStderr(), appErrs)
	return nil
}

func writeAppTable(out io.Writer, list []apps.App) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tNAME\tSTATE\tINSTALLED\tLATEST")
	for _, app := range list {
		spec := app.Spec()
		current, latest := "-", "-"
		state := string(app.Kind())
		switch a := app.(type) {
		case *apps.LocalApp:
			current = a.CurrentVersion
		case *apps.UninstalledDownloadableApp:
			latest = a.LatestVersion
		case *apps.InstalledDownloadableApp:
			current, latest = a.CurrentVersion, a.LatestVersion
			if a.UpgradeAvailable {
				state = "upgrade"
			}
		case *apps.WithdrawnApp:
			current = a.CurrentVersion
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			spec.Source, spec.Name, state, tui.NonEmptyOrDash(current), tui.NonEmptyOrDash(latest))
	}
	w.Flush()
}

func runAppsInfo(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	spec := apps.AppSpec{Source: args[0], Name: args[1]}
	app, err := e.service.DownloadableApp(cmd.Context(), spec)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), app)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", boldStyle.Render("App:"), spec)
	switch a := app.(type) {
	case *apps.UninstalledDownloadableApp:
		printBase(out, a.Base)
		fmt.Fprintf(out, "  %-12s %s\n", "Latest:", a.LatestVersion)
		fmt.Fprintf(out, "  %-12s %s\n", "Versions:", strings.Join(a.Versions, ", "))
	case *apps.InstalledDownloadableApp:
		printBase(out, a.Base)
		fmt.Fprintf(out, "  %-12s %s\n", "Installed:", a.CurrentVersion)
		fmt.Fprintf(out, "  %-12s %s\n", "Latest:", a.LatestVersion)
		fmt.Fprintf(out, "  %-12s %s\n", "Path:", a.Path)
		fmt.Fprintf(out, "  %-12s %s\n", "Versions:", strings.Join(a.Versions, ", "))
		if a.UpgradeAvailable {
			fmt.Fprintln(out, "  "+yellowStyle.Render("Upgrade available"))
		}
	case *apps.WithdrawnApp:
		printBase(out, a.Base)
		fmt.Fprintf(out, "  %-12s %s\n", "Installed:", a.CurrentVersion)
		fmt.Fprintf(out, "  %-12s %s\n", "Path:", a.Path)
		fmt.Fprintln(out, "  "+redStyle.Render("Withdrawn by its source"))
	default:
		return fmt.Errorf("unexpected app kind %s", app.Kind())
	}
	return nil
}

func printBase(out io.Writer, b apps.Base) {
	fmt.Fprintf(out, "  %-12s %s\n", "Name:", tui.NonEmptyOrDash(b.DisplayName))
	fmt.Fprintf(out, "  %-12s %s\n", "About:", tui.NonEmptyOrDash(b.Description))
	if b.Homepage != "" {
		fmt.Fprintf(out, "  %-12s %s\n", "Homepage:", b.Homepage)
	}
}

// resolveVersion maps a --version value onto a published version. Exact
// matches win; otherwise the value is read as a semver constraint and the
// newest satisfying version is picked.
func resolveVersion(info appspec.AppInfo, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return "", nil
	}
	if _, ok := info.Version(requested); ok {
		return requested, nil
	}
	constraint, err := semver.NewConstraint(requested)
	if err != nil {
		return "", fmt.Errorf("version %q of %s is not published", requested, info.Name)
	}
	for _, candidate := range info.SortedVersions() {
		v, err := semver.NewVersion(candidate)
		if err != nil {
			continue
		}
		if constraint.Check(v) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no published version of %s satisfies %q", info.Name, requested)
}

func runAppsInstall(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	spec := apps.AppSpec{Source: args[0], Name: args[1]}
	info, err := e.service.ReadAppInfo(spec)
	if err != nil {
		return err
	}
	version, err := resolveVersion(info, installVersion)
	if err != nil {
		return err
	}

	opts := apps.InstallOptions{Version: version}
	if tui.DetectMode(cmd.ErrOrStderr(), installNoProgress, outputJSON) == tui.ModeTUI {
		sw := tui.NewStatusWriter(cmd.ErrOrStderr(), spec.String())
		defer sw.Stop()
		opts.OnPhase = tui.Phase[apps.Phase](sw)
	}

	result, err := e.service.Install(cmd.Context(), spec, opts)
	if err != nil {
		return err
	}
	return reportInstall(cmd, result)
}

func reportInstall(cmd *cobra.Command, result apps.InstallResult) error {
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), installJSON(result))
	}
	switch r := result.(type) {
	case apps.InstallSucceeded:
		fmt.Fprintln(cmd.OutOrStdout(), greenStyle.Render(apps.Describe(r)))
		return nil
	case apps.InstallAppExists:
		return fmt.Errorf("%s (use --overwrite to replace it)", apps.Describe(r))
	case apps.InstallFailed:
		if r.Path != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Left %s for inspection\n", r.Path)
		}
		return fmt.Errorf("%s", apps.Describe(r))
	default:
		panic(fmt.Sprintf("unhandled install result %T", result))
	}
}

type installOutput struct {
	Status string             `json:"status"`
	App    apps.App           `json:"app,omitempty"`
	Reason apps.FailureReason `json:"reason,omitempty"`
	Path   string             `json:"path,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func installJSON(result apps.InstallResult) installOutput {
	switch r := result.(type) {
	case apps.InstallSucceeded:
		return installOutput{Status: "succeeded", App: r.App}
	case apps.InstallAppExists:
		return installOutput{Status: "exists", Path: r.Path, Error: apps.Describe(r)}
	case apps.InstallFailed:
		return installOutput{Status: "failed", Reason: r.Reason, Path: r.Path, Error: r.Message}
	default:
		panic(fmt.Sprintf("unhandled install result %T", result))
	}
}

func runAppsRemove(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	spec := apps.AppSpec{Source: args[0], Name: args[1]}
	if err := e.service.Remove(cmd.Context(), spec); err != nil {
		return err
	}
	if !outputJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", spec)
	}
	return nil
}

func runAppsInstallLocal(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.service.InstallLocal(cmd.Context(), args[0], apps.InstallLocalOptions{Overwrite: installLocalForce})
	if err != nil {
		return err
	}
	return reportInstall(cmd, result)
}

func runAppsRemoveLocal(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.service.RemoveLocal(args[0]); err != nil {
		return err
	}
	if !outputJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed local app %s\n", args[0])
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
