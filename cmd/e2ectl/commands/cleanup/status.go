package cleanup

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/cleanup/journal"
)

var (
	statusDetails    bool
	statusIdentifier string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show leftover entities in the cleanup journal",
	Long: `Show the entities still recorded in the cleanup journal, counted per
cleanup identifier, or one per line with --details.

Examples:
  # Counts per identifier
  e2ectl cleanup status

  # Every entity of one suite
  e2ectl cleanup status --details --identifier suite_applicants`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusDetails, "details", false, "List every entity instead of counts")
	statusCmd.Flags().StringVar(&statusIdentifier, "identifier", "", "Only show this cleanup identifier")
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, j, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	ctx := cmd.Context()
	records, err := j.Pending(ctx, statusIdentifier)
	if err != nil {
		return err
	}

	if statusDetails {
		return cmdutil.PrintOutput(cmd.OutOrStdout(), records, len(records) == 0,
			"Journal is empty.", RecordList(records))
	}

	list := newStatusList(journal.Summarize(records))
	return cmdutil.PrintOutput(cmd.OutOrStdout(), list, len(list) == 0,
		"Journal is empty.", list)
}
