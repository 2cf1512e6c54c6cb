package cleanup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
)

var purgeForce bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every journal entry without deleting anything",
	Long: `Empty the cleanup journal. No request is sent to the product API:
use this after the test environment was reset by other means.

Examples:
  e2ectl cleanup purge --force`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeForce, "force", "f", false, "Skip confirmation prompt")
}

func runPurge(cmd *cobra.Command, args []string) error {
	_, j, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	var n int
	ok, err := cmdutil.RunWithConfirmation("Drop every entry of the cleanup journal?", purgeForce, func() error {
		var err error
		n, err = j.Purge()
		return err
	})
	if err != nil || !ok {
		return err
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Dropped %s from the journal", pluralize(n, "entry", "entries")))
	return nil
}
