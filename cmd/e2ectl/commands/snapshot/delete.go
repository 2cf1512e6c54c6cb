package snapshot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a snapshot",
	Long: `Delete the dump, sidecar and catalog entry of a snapshot.

Archived copies in S3 are kept. You will be prompted for confirmation
unless --force is specified.

Examples:
  # Delete snapshot with confirmation
  e2ectl snapshot delete seeded

  # Delete snapshot without confirmation
  e2ectl snapshot delete seeded --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	return withManager(cmd, func(ctx context.Context, _ *config.Config, mgr *snapshot.Manager) error {
		ok, err := cmdutil.RunWithConfirmation(fmt.Sprintf("Delete snapshot '%s'?", name), deleteForce, func() error {
			if err := mgr.Delete(ctx, name); err != nil {
				return fmt.Errorf("failed to delete snapshot: %w", err)
			}
			return nil
		})
		if err != nil || !ok {
			return err
		}

		cmdutil.PrintSuccess(fmt.Sprintf("Snapshot '%s' deleted successfully", name))
		return nil
	})
}
