package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"launcher/internal/config"
	"launcher/internal/paths"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the launcher configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration in YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors and warnings",
		Args:  cobra.NoArgs,
		RunE:  runConfigValidate,
	})
	return cmd
}

// loadConfig reads the configuration without touching the apps root.
func loadConfig() (config.Config, error) {
	path := configFile
	if strings.TrimSpace(path) == "" {
		layout, err := paths.Resolve(appsRootDir)
		if err != nil {
			return config.Config{}, err
		}
		path = layout.ConfigFile
	}
	return config.Load(path)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), cfg)
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	results := cfg.Validate()
	if outputJSON {
		if results == nil {
			results = []config.ValidationResult{}
		}
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, greenStyle.Render("OK"))
		}
		for _, r := range results {
			label := yellowStyle.Render("WARN")
			if r.Level == "error" {
				label = redStyle.Render("ERROR")
			}
			fmt.Fprintf(out, "  %s %s\n", label, r.Message)
		}
	}
	if config.HasErrors(results) {
		return fmt.Errorf("configuration has errors")
	}
	return nil
}
