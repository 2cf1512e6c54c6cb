package snapshot

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/internal/cli/output"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <name>",
	Short: "Verify a snapshot against its checksum",
	Long: `Hash the dump of a snapshot and compare it with the SHA-256 recorded
in its sidecar.

Examples:
  e2ectl snapshot verify seeded`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	return withManager(cmd, func(ctx context.Context, _ *config.Config, mgr *snapshot.Manager) error {
		info, err := mgr.Verify(ctx, args[0])
		if err != nil {
			return err
		}

		format, err := cmdutil.GetOutputFormatParsed()
		if err != nil {
			return err
		}
		if err := cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), info, "Snapshot '"+info.Name+"' is intact"); err != nil {
			return err
		}
		if format == output.FormatTable {
			return output.PrintTable(cmd.OutOrStdout(), SnapshotDetail{info})
		}
		return nil
	})
}
