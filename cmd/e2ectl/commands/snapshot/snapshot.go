// Package snapshot implements snapshot management commands.
package snapshot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/internal/cli/output"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

// Cmd is the parent command for snapshot management.
var Cmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage database snapshots",
	Long: `Manage the MySQL snapshots used to bootstrap test data.

A snapshot is a mysqldump file and a JSON sidecar in the snapshot
directory, indexed by a SQLite catalog. Snapshots can be archived to S3
and are fetched back automatically when restored on another machine.

Examples:
  # Take a snapshot of the seeded database
  e2ectl snapshot create

  # List snapshots
  e2ectl snapshot list

  # Restore the newest snapshot
  e2ectl snapshot restore latest`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(restoreCmd)
	Cmd.AddCommand(verifyCmd)
	Cmd.AddCommand(pruneCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(archiveCmd)
	Cmd.AddCommand(rescanCmd)
}

// withManager loads the configuration, opens the snapshot manager and
// closes it after fn.
func withManager(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, mgr *snapshot.Manager) error) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mgr, err := snapshot.NewManagerFromConfig(ctx, cfg.Snapshot)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	return fn(ctx, cfg, mgr)
}

// SnapshotList is a list of snapshots for table rendering.
type SnapshotList []*snapshot.Info

// Headers implements TableRenderer.
func (sl SnapshotList) Headers() []string {
	return []string{"NAME", "DATABASE", "CREATED", "AGE", "SIZE", "TABLES", "ARCHIVED"}
}

// Rows implements TableRenderer.
func (sl SnapshotList) Rows() [][]string {
	now := time.Now()
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.Name,
			s.Database,
			output.Timestamp(s.CreatedAt),
			output.Age(s.CreatedAt, now),
			output.Bytes(s.SizeBytes),
			fmt.Sprintf("%d", len(s.Tables)),
			cmdutil.BoolToYesNo(s.ArchiveKey != ""),
		})
	}
	return rows
}

// SnapshotDetail renders one snapshot as a two-column table.
type SnapshotDetail struct {
	*snapshot.Info
}

// Headers implements TableRenderer.
func (d SnapshotDetail) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (d SnapshotDetail) Rows() [][]string {
	return [][]string{
		{"Name", d.Name},
		{"Database", d.Database},
		{"Created", output.Timestamp(d.CreatedAt)},
		{"Size", output.Bytes(d.SizeBytes)},
		{"SHA-256", d.SHA256},
		{"Tables", cmdutil.EmptyOr(strings.Join(d.Tables, ", "), "-")},
		{"Archive key", cmdutil.EmptyOr(d.ArchiveKey, "-")},
	}
}
