package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/internal/cli/prompt"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var restoreForce bool

var restoreCmd = &cobra.Command{
	Use:   "restore [name|latest]",
	Short: "Restore a snapshot into the test database",
	Long: `Load a snapshot into the test database, replacing its data.

"latest" restores the newest snapshot whose dump is on disk. A dump that
is only in the S3 archive is downloaded first. The dump is verified
against its recorded checksum before it is loaded. Without a name the
snapshot is picked from the catalog interactively.

Examples:
  # Pick a snapshot from the catalog
  e2ectl snapshot restore

  # Restore the newest snapshot
  e2ectl snapshot restore latest

  # Restore without confirmation
  e2ectl snapshot restore seeded --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "Skip confirmation prompt")
}

func runRestore(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, cfg *config.Config, mgr *snapshot.Manager) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			list, err := mgr.List(ctx)
			if err != nil {
				return err
			}
			if name, err = prompt.Select("Snapshot to restore", snapshotOptions(list, time.Now())); err != nil {
				return err
			}
		}
		if name == "latest" {
			info, err := mgr.Latest(ctx)
			if err != nil {
				return fmt.Errorf("no snapshot to restore: %w", err)
			}
			name = info.Name
		}

		label := fmt.Sprintf("Restore snapshot '%s' into database '%s' on %s? Its current data is replaced",
			name, cfg.Snapshot.Database.Name, cfg.Snapshot.Database.Host)
		ok, err := cmdutil.RunWithConfirmation(label, restoreForce, func() error {
			return mgr.Restore(ctx, name)
		})
		if err != nil || !ok {
			return err
		}

		cmdutil.PrintSuccess(fmt.Sprintf("Snapshot '%s' restored", name))
		return nil
	})
}

// snapshotOptions turns catalog entries, newest first, into restore
// picker choices.
func snapshotOptions(list []*snapshot.Info, now time.Time) []prompt.Option {
	opts := make([]prompt.Option, 0, len(list))
	for _, info := range list {
		opts = append(opts, prompt.Option{
			Label: info.Name,
			Value: info.Name,
			Description: fmt.Sprintf("%s, taken %s, %s", info.Database,
				humanize.RelTime(info.CreatedAt, now, "ago", "from now"),
				humanize.Bytes(uint64(info.SizeBytes))),
		})
	}
	return opts
}
