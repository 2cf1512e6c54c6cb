package snapshot

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <name>",
	Short: "Upload a snapshot to the S3 archive",
	Long: `Verify a snapshot and upload its dump and sidecar to the S3 archive
configured under snapshot.archive.

Examples:
  e2ectl snapshot archive seeded`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, cfg *config.Config, mgr *snapshot.Manager) error {
		key, err := mgr.Archive(ctx, args[0])
		if err != nil {
			return err
		}

		result := map[string]string{
			"name":   args[0],
			"bucket": cfg.Snapshot.Archive.Bucket,
			"key":    key,
		}
		return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), result,
			fmt.Sprintf("Snapshot '%s' archived to s3://%s/%s", args[0], cfg.Snapshot.Archive.Bucket, key))
	})
}
