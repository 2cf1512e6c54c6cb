package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/internal/cli/prompt"
	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/pkg/cleanup"
	"github.com/marmos91/screening-e2e/pkg/cleanup/journal"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/datamanager"
)

var (
	sweepIdentifier string
	sweepOlderThan  time.Duration
	sweepForce      bool
	sweepDryRun     bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete leftover entities recorded in the journal",
	Long: `Delete the entities recorded in the cleanup journal through the
product API, then drop them from the journal.

The sweep logs in with api.admin_email and api.admin_password, and prompts
for them when they are not configured. Entities whose delete fails stay
in the journal for the next sweep. Entities already gone count as deleted.

Use --older-than to leave alone the data of runs that may still be going.

Examples:
  # Preview what would be deleted
  e2ectl cleanup sweep --dry-run

  # Sweep one suite without confirmation
  e2ectl cleanup sweep --identifier suite_applicants --force

  # Sweep everything tracked more than an hour ago
  e2ectl cleanup sweep --older-than 1h`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepIdentifier, "identifier", "", "Only sweep this cleanup identifier")
	sweepCmd.Flags().DurationVar(&sweepOlderThan, "older-than", 0, "Only sweep entities tracked at least this long ago")
	sweepCmd.Flags().BoolVarP(&sweepForce, "force", "f", false, "Skip confirmation prompt")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Show what would be deleted without deleting")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, j, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	ctx := cmd.Context()

	// The journal is not attached to this registry: records are removed
	// one by one below, so entities outside the sweep window survive.
	reg := cleanup.NewRegistry(cleanup.Options{})
	n, err := j.Replay(ctx, reg.Tracker, sweepIdentifier, sweepOlderThan)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	if n == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to sweep.")
		return nil
	}

	pending := make(map[string]cleanup.Status)
	for _, id := range reg.Tracker.Identifiers() {
		pending[id] = reg.Tracker.Status(id)
	}
	if sweepDryRun {
		list := newStatusList(pending)
		return cmdutil.PrintOutput(cmd.OutOrStdout(), list, false, "", list)
	}

	label := fmt.Sprintf("Delete %s under %s from %s?",
		pluralize(n, "entity", "entities"), pluralize(len(pending), "identifier", "identifiers"), cfg.API.BaseURL)
	var rows SweepList
	ok, err := cmdutil.RunWithConfirmation(label, sweepForce, func() error {
		email, password, err := prompt.Credentials(cfg.API.AdminEmail, cfg.API.AdminPassword)
		if err != nil {
			return err
		}
		reg.Executor = cleanup.NewExecutor(reg.Tracker,
			cleanup.WithFallbackCredentials(cleanup.Credentials{Email: email, Password: password}))

		rows, err = sweep(ctx, cfg, j, reg)
		return err
	})
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !ok {
		return nil
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), rows, len(rows) == 0, "Nothing swept.", rows)
}

// sweep runs the executor over every identifier in reg and removes the
// records of entities that are gone from the journal.
func sweep(ctx context.Context, cfg *config.Config, j *journal.Journal, reg *cleanup.Registry) (SweepList, error) {
	entities := make(map[string][]cleanup.Entity)
	for _, id := range reg.Tracker.Identifiers() {
		entities[id] = reg.Tracker.Entities(id)
	}

	dm := datamanager.New(datamanager.Config{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		DeviceOS:    cfg.API.DeviceOS,
		EmailDomain: cfg.API.EmailDomain,
	})

	sweepCtx, cancel := context.WithTimeout(ctx, cfg.Cleanup.RequestTimeout)
	defer cancel()

	results, sweepErr := reg.Sweep(sweepCtx, dm)

	rows := make(SweepList, 0, len(results))
	for _, res := range results {
		rows = append(rows, newSweepRow(res))
		if res.Attempted == 0 {
			continue
		}
		failed := make(map[cleanup.Entity]bool, len(res.Errors))
		for _, e := range res.Errors {
			failed[e.Entity] = true
		}
		for _, ent := range entities[res.Identifier] {
			if failed[ent] {
				continue
			}
			if err := j.Remove(res.Identifier, ent); err != nil {
				logger.WarnCtx(ctx, "Failed to drop swept entity from journal",
					logger.KeyIdentifier, res.Identifier,
					logger.KeyEntityID, ent.ID,
					logger.Err(err))
			}
		}
	}
	return rows, sweepErr
}
