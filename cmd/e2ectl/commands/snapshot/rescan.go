package snapshot

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var rescanWatch bool

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rebuild the catalog from the snapshot directory",
	Long: `Register every sidecar in the snapshot directory in the catalog and
drop catalog entries whose sidecar is gone. Use it after copying
snapshots between machines by hand.

With --watch the command keeps running and rescans whenever a sidecar
is added, changed or removed.

Examples:
  e2ectl snapshot rescan
  e2ectl snapshot rescan --watch`,
	RunE: runRescan,
}

func init() {
	rescanCmd.Flags().BoolVar(&rescanWatch, "watch", false, "Keep rescanning as sidecars change")
}

func runRescan(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, cfg *config.Config, mgr *snapshot.Manager) error {
		if rescanWatch {
			fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)...\n", cfg.Snapshot.Dir)
			return mgr.Watch(ctx, snapshot.DefaultWatchDebounce, func(n int, err error) {
				if err == nil {
					cmdutil.PrintSuccess(fmt.Sprintf("Catalog holds %d snapshot(s)", n))
				}
			})
		}

		n, err := mgr.Rescan(ctx)
		if err != nil {
			return fmt.Errorf("failed to rescan %s: %w", cfg.Snapshot.Dir, err)
		}
		cmdutil.PrintSuccess(fmt.Sprintf("Catalog holds %d snapshot(s) from %s", n, cfg.Snapshot.Dir))
		return nil
	})
}
