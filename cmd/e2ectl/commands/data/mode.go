package data

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/internal/cli/output"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

var modeOverride string

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Resolve the test data mode",
	Long: `Resolve snapshot.data_mode (or TEST_DATA_MODE) the same way a test run
does, and show whether the run would seed its data through the API or
restore a snapshot.

  AUTO      restore the newest snapshot younger than snapshot.max_age,
            otherwise seed
  DYNAMIC   always seed
  SNAPSHOT  always restore the newest snapshot, fail if there is none

Examples:
  # Resolve the configured mode
  e2ectl data mode

  # Check what SNAPSHOT mode would do
  e2ectl data mode --mode snapshot`,
	RunE: runMode,
}

func init() {
	modeCmd.Flags().StringVar(&modeOverride, "mode", "", "Resolve this mode instead of the configured one")
}

// ModeResult is the printable outcome of a resolution.
type ModeResult struct {
	Requested string     `json:"requested" yaml:"requested"`
	Effective string     `json:"effective" yaml:"effective"`
	Reason    string     `json:"reason" yaml:"reason"`
	Snapshot  string     `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

func newModeResult(res snapshot.Resolution) ModeResult {
	r := ModeResult{
		Requested: string(res.Requested),
		Effective: string(res.Effective),
		Reason:    res.Reason,
	}
	if res.Snapshot != nil {
		r.Snapshot = res.Snapshot.Name
		created := res.Snapshot.CreatedAt
		r.CreatedAt = &created
	}
	return r
}

// Headers implements TableRenderer.
func (r ModeResult) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (r ModeResult) Rows() [][]string {
	rows := [][]string{
		{"Requested", r.Requested},
		{"Effective", r.Effective},
		{"Reason", r.Reason},
	}
	if r.Snapshot != "" {
		rows = append(rows, []string{"Snapshot", r.Snapshot})
	}
	if r.CreatedAt != nil {
		rows = append(rows, []string{"Created", output.Timestamp(*r.CreatedAt)})
		rows = append(rows, []string{"Age", output.Age(*r.CreatedAt, time.Now())})
	}
	return rows
}

func runMode(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	requested := cfg.Snapshot.DataMode
	if modeOverride != "" {
		requested = modeOverride
	}
	mode, err := snapshot.ParseMode(requested)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res := snapshot.Resolution{Requested: mode, Effective: snapshot.ModeDynamic, Reason: "dynamic mode requested"}
	if mode != snapshot.ModeDynamic {
		mgr, err := snapshot.NewManagerFromConfig(ctx, cfg.Snapshot)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Close() }()

		res, err = mgr.Resolve(ctx, mode)
		if err != nil {
			return fmt.Errorf("cannot resolve %s mode: %w", mode, err)
		}
	}

	result := newModeResult(res)
	return cmdutil.PrintOutput(cmd.OutOrStdout(), result, false, "", result)
}
