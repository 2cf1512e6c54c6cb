package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the screening E2E configuration.

Checks for syntax errors, missing required fields, and invalid values,
then warns about settings that are valid but probably not intended.

Examples:
  # Validate default config
  e2ectl config validate

  # Validate specific config file
  e2ectl config validate --config ./e2e.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	displayPath := cmdutil.Flags.ConfigFile
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
		if !config.DefaultConfigExists() {
			displayPath += " (not found, using environment and defaults)"
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  API base URL:    %s\n", cfg.API.BaseURL)
	_, _ = fmt.Fprintf(out, "  Cleanup policy:  %s\n", cfg.Cleanup.Policy)
	_, _ = fmt.Fprintf(out, "  Retries:         %d\n", cfg.Runner.Retries)
	_, _ = fmt.Fprintf(out, "  Data mode:       %s\n", cfg.Snapshot.DataMode)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)

	return nil
}

func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.API.AdminEmail == "" {
		warnings = append(warnings, "No fallback admin credentials - cleanup fails when a test never authenticated")
	}
	if cfg.Cleanup.JournalPath == "" {
		warnings = append(warnings, "Cleanup journal disabled - fixtures of killed runs cannot be swept")
	}
	if cfg.Browser.BaseURL == "" {
		warnings = append(warnings, "browser.base_url not set - browser suites will be skipped")
	}
	if cfg.Snapshot.DataMode == "SNAPSHOT" {
		warnings = append(warnings, "SNAPSHOT data mode - runs fail without a snapshot, check with: e2ectl data mode")
	}
	return warnings
}
