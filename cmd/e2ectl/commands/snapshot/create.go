package snapshot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/internal/cli/output"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var createArchive bool

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a snapshot of the test database",
	Long: `Dump the test database with mysqldump and record the snapshot.

Without a name the snapshot is named after the current UTC time.

Examples:
  # Create a timestamped snapshot
  e2ectl snapshot create

  # Create a named snapshot and upload it to S3
  e2ectl snapshot create seeded --archive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().BoolVar(&createArchive, "archive", false, "Upload the snapshot to the S3 archive")
}

func runCreate(cmd *cobra.Command, args []string) error {
	var name string
	if len(args) > 0 {
		name = args[0]
	}

	return withManager(cmd, func(ctx context.Context, _ *config.Config, mgr *snapshot.Manager) error {
		info, err := mgr.Create(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to create snapshot: %w", err)
		}

		if createArchive {
			key, err := mgr.Archive(ctx, info.Name)
			if err != nil {
				return fmt.Errorf("snapshot %s created but not archived: %w", info.Name, err)
			}
			info.ArchiveKey = key
		}

		return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), info,
			fmt.Sprintf("Snapshot '%s' created (%s, %d tables)", info.Name, output.Bytes(info.SizeBytes), len(info.Tables)))
	})
}
