package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var (
	pruneMaxAge time.Duration
	pruneForce  bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots",
	Long: `Delete the local copies of snapshots older than --max-age, or
snapshot.max_age when the flag is not given. Archived copies are kept.

Examples:
  # Prune with the configured max age
  e2ectl snapshot prune

  # Prune everything older than a week without confirmation
  e2ectl snapshot prune --max-age 168h --force`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneMaxAge, "max-age", 0, "Delete snapshots older than this (default: snapshot.max_age)")
	pruneCmd.Flags().BoolVarP(&pruneForce, "force", "f", false, "Skip confirmation prompt")
}

func runPrune(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, cfg *config.Config, mgr *snapshot.Manager) error {
		maxAge := pruneMaxAge
		if maxAge <= 0 {
			maxAge = cfg.Snapshot.MaxAge
		}

		var pruned []*snapshot.Info
		ok, err := cmdutil.RunWithConfirmation(
			fmt.Sprintf("Delete snapshots older than %s?", maxAge), pruneForce,
			func() error {
				var err error
				pruned, err = mgr.Prune(ctx, maxAge)
				return err
			})
		if err != nil || !ok {
			return err
		}

		return cmdutil.PrintOutput(cmd.OutOrStdout(), pruned, len(pruned) == 0,
			"No snapshots older than "+maxAge.String()+".", SnapshotList(pruned))
	})
}
