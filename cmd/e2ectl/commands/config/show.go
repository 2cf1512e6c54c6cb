package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/internal/cli/output"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective configuration: the file, environment overrides
and defaults merged together.

Outputs YAML unless --output json is given.

Examples:
  # Show default config as YAML
  e2ectl config show

  # Show as JSON
  e2ectl config show --output json

  # Show specific config file
  e2ectl config show --config ./e2e.yaml`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}
