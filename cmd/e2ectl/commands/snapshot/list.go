package snapshot

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List snapshots",
	Long: `List the catalogued snapshots, newest first.

Examples:
  # List as table
  e2ectl snapshot list

  # List as JSON
  e2ectl snapshot list -o json`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, _ *config.Config, mgr *snapshot.Manager) error {
		snapshots, err := mgr.List(ctx)
		if err != nil {
			return err
		}
		return cmdutil.PrintOutput(cmd.OutOrStdout(), snapshots, len(snapshots) == 0,
			"No snapshots found. Create one with: e2ectl snapshot create", SnapshotList(snapshots))
	})
}
