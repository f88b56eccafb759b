package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	appsRootDir string
	configFile  string
	outputJSON  bool
	verbose     bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "launcher",
		Short:         "Manage app sources and installed apps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&appsRootDir, "apps-root-dir", "", "Path to the apps root (default ~/.nrfconnect-apps)")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to launcher.yaml (default <apps root>/launcher.yaml)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Mirror the log to stderr")

	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newAppsCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}
