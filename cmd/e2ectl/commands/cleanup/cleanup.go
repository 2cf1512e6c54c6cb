// Package cleanup implements commands over the cleanup journal.
package cleanup

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/internal/cli/output"
	"github.com/marmos91/screening-e2e/pkg/cleanup"
	"github.com/marmos91/screening-e2e/pkg/cleanup/journal"
	"github.com/marmos91/screening-e2e/pkg/config"
)

// Cmd is the parent command for cleanup journal management.
var Cmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Inspect and sweep leftover test data",
	Long: `Inspect and sweep the fixtures recorded in the cleanup journal.

When cleanup.journal_path is set, every entity a test tracks is written to
the journal and removed once its cleanup ran. Entries left in the journal
belong to runs that were killed, or to deletes that failed.

Examples:
  # Show what is left over
  e2ectl cleanup status

  # Delete leftovers older than an hour
  e2ectl cleanup sweep --older-than 1h`,
}

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(sweepCmd)
	Cmd.AddCommand(purgeCmd)
}

var errNoJournal = errors.New("cleanup.journal_path is not set, there is no journal to read")

// openJournal loads the configuration and opens the journal it names.
func openJournal() (*config.Config, *journal.Journal, error) {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Cleanup.JournalPath == "" {
		return nil, nil, errNoJournal
	}
	j, err := journal.Open(cfg.Cleanup.JournalPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, j, nil
}

// IdentifierStatus is the leftover count of one cleanup identifier.
type IdentifierStatus struct {
	Identifier     string `json:"identifier" yaml:"identifier"`
	cleanup.Status `yaml:",inline"`
}

// StatusList is a list of identifier counts for table rendering.
type StatusList []IdentifierStatus

func newStatusList(summary map[string]cleanup.Status) StatusList {
	list := make(StatusList, 0, len(summary))
	for id, st := range summary {
		list = append(list, IdentifierStatus{Identifier: id, Status: st})
	}
	sort.Slice(list, func(a, b int) bool { return list[a].Identifier < list[b].Identifier })
	return list
}

// Headers implements TableRenderer.
func (sl StatusList) Headers() []string {
	return []string{"IDENTIFIER", "SCOPE", "USERS", "APPLICATIONS", "SESSIONS", "TOTAL"}
}

// Rows implements TableRenderer.
func (sl StatusList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		scope := "test"
		if cleanup.IsSuiteIdentifier(s.Identifier) {
			scope = "suite"
		}
		rows = append(rows, []string{
			s.Identifier,
			scope,
			strconv.Itoa(s.Users),
			strconv.Itoa(s.Applications),
			strconv.Itoa(s.Sessions),
			strconv.Itoa(s.Total()),
		})
	}
	return rows
}

// RecordList is a list of journal records for table rendering.
type RecordList []journal.Record

// Headers implements TableRenderer.
func (rl RecordList) Headers() []string {
	return []string{"IDENTIFIER", "KIND", "ID", "LABEL", "TRACKED"}
}

// Rows implements TableRenderer.
func (rl RecordList) Rows() [][]string {
	rows := make([][]string, 0, len(rl))
	for _, r := range rl {
		rows = append(rows, []string{
			r.Identifier,
			string(r.Entity.Kind),
			r.Entity.ID,
			cmdutil.EmptyOr(r.Entity.Label, "-"),
			output.Timestamp(r.TrackedAt),
		})
	}
	return rows
}

// SweepRow is the outcome of sweeping one identifier.
type SweepRow struct {
	Identifier string   `json:"identifier" yaml:"identifier"`
	Attempted  int      `json:"attempted" yaml:"attempted"`
	Deleted    int      `json:"deleted" yaml:"deleted"`
	NotFound   int      `json:"not_found" yaml:"not_found"`
	Failed     int      `json:"failed" yaml:"failed"`
	Errors     []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newSweepRow(res cleanup.Result) SweepRow {
	row := SweepRow{
		Identifier: res.Identifier,
		Attempted:  res.Attempted,
		Deleted:    res.Deleted,
		NotFound:   res.NotFound,
		Failed:     res.Failed(),
	}
	for _, e := range res.Errors {
		row.Errors = append(row.Errors, e.Error())
	}
	return row
}

// SweepList is a list of sweep outcomes for table rendering.
type SweepList []SweepRow

// Headers implements TableRenderer.
func (sl SweepList) Headers() []string {
	return []string{"IDENTIFIER", "ATTEMPTED", "DELETED", "NOT FOUND", "FAILED"}
}

// Rows implements TableRenderer.
func (sl SweepList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.Identifier,
			strconv.Itoa(s.Attempted),
			strconv.Itoa(s.Deleted),
			strconv.Itoa(s.NotFound),
			strconv.Itoa(s.Failed),
		})
	}
	return rows
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
