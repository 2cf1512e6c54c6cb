package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Initialize a screening E2E configuration file with default values.

By default, the configuration file is created at $XDG_CONFIG_HOME/screening-e2e/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  e2ectl config init

  # Initialize with custom path
  e2ectl config init --config ./e2e.yaml

  # Force overwrite existing config
  e2ectl config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cmdutil.Flags.ConfigFile

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Set api.base_url and the fallback admin credentials")
	_, _ = fmt.Fprintln(out, "  2. Check the file with: e2ectl config validate")
	_, _ = fmt.Fprintf(out, "  3. Point the suites at it with: E2E_CONFIG=%s go test -tags e2e ./test/e2e/...\n", configPath)
	return nil
}
