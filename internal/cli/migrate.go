package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"launcher/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Convert metadata written by older launcher versions",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	report, err := migrateAll(e)
	if outputJSON {
		if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
			return werr
		}
		return err
	}

	out := cmd.OutOrStdout()
	if report.SourcesList {
		fmt.Fprintln(out, "Converted the legacy sources list")
	}
	if len(report.Sources) == 0 && !report.SourcesList {
		fmt.Fprintln(out, "Nothing to migrate")
	}
	for _, name := range report.Sources {
		fmt.Fprintf(out, "Migrated source %s\n", name)
	}
	if report.Apps > 0 {
		fmt.Fprintf(out, "%s %d app metadata files written\n", boldStyle.Render("Apps:"), report.Apps)
	}
	return err
}

func migrateAll(e *env) (migrate.Report, error) {
	report, err := e.service.Migrator.Migrate(e.service.Registry)
	report.SourcesList = report.SourcesList || e.sourcesListMigrated
	return report, err
}
