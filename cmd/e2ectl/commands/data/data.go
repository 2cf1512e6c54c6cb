// Package data implements test data bootstrap commands.
package data

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for test data commands.
var Cmd = &cobra.Command{
	Use:   "data",
	Short: "Inspect test data bootstrapping",
	Long: `Inspect how the suites get their test data.

Examples:
  # Show whether the next run seeds or restores a snapshot
  e2ectl data mode`,
}

func init() {
	Cmd.AddCommand(modeCmd)
}
