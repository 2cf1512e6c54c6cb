package snapshot

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/screening-e2e/cmd/e2ectl/cmdutil"
	"github.com/marmos91/screening-e2e/pkg/snapshot"
)

func setupSnapshotDir(t *testing.T, output string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("E2E_SNAPSHOT_DIR", dir)

	prev := *cmdutil.Flags
	*cmdutil.Flags = cmdutil.GlobalFlags{Output: output}
	t.Cleanup(func() { *cmdutil.Flags = prev })
	return dir
}

func testCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	return cmd
}

func TestSnapshotListRows(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	list := SnapshotList{
		{Name: "seeded", Database: "screening", CreatedAt: created, SizeBytes: 2048, Tables: []string{"users", "sessions"}, ArchiveKey: "snapshots/seeded.sql"},
		{Name: "bare", Database: "screening", CreatedAt: created},
	}

	rows := list.Rows()
	require.Len(t, rows, 2)
	assert.Len(t, list.Headers(), len(rows[0]))
	assert.Equal(t, "seeded", rows[0][0])
	assert.Equal(t, "2.0 KiB", rows[0][4])
	assert.Equal(t, "2", rows[0][5])
	assert.Equal(t, "yes", rows[0][6])
	assert.Equal(t, "no", rows[1][6])
}

func TestSnapshotDetailRows(t *testing.T) {
	d := SnapshotDetail{&snapshot.Info{Name: "seeded", SHA256: "abc"}}
	rows := d.Rows()
	assert.Contains(t, rows, []string{"SHA-256", "abc"})
	assert.Contains(t, rows, []string{"Tables", "-"})
	assert.Contains(t, rows, []string{"Archive key", "-"})
}

func TestListEmpty(t *testing.T) {
	setupSnapshotDir(t, "table")

	var out bytes.Buffer
	require.NoError(t, runList(testCmd(&out), nil))
	assert.Contains(t, out.String(), "No snapshots found")
}

func TestRescanThenList(t *testing.T) {
	dir := setupSnapshotDir(t, "json")

	info := &snapshot.Info{
		Name:      "seeded",
		Database:  "screening",
		CreatedAt: time.Now().UTC().Add(-time.Hour).Truncate(time.Second),
		SizeBytes: 12,
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seeded.sql"), []byte("CREATE TABLE"), 0644))
	require.NoError(t, snapshot.WriteSidecar(dir, info))

	var out bytes.Buffer
	require.NoError(t, runRescan(testCmd(&out), nil))
	require.NoError(t, runList(testCmd(&out), nil))

	var listed []snapshot.Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "seeded", listed[0].Name)
}

func TestDeleteForce(t *testing.T) {
	dir := setupSnapshotDir(t, "table")
	deleteForce = true
	t.Cleanup(func() { deleteForce = false })

	info := &snapshot.Info{Name: "old", Database: "screening", CreatedAt: time.Now().UTC()}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.sql"), []byte("--"), 0644))
	require.NoError(t, snapshot.WriteSidecar(dir, info))

	var out bytes.Buffer
	require.NoError(t, runRescan(testCmd(&out), nil))
	require.NoError(t, runDelete(testCmd(&out), []string{"old"}))

	_, err := os.Stat(filepath.Join(dir, "old.sql"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "old.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestArchiveNotConfigured(t *testing.T) {
	setupSnapshotDir(t, "table")

	var out bytes.Buffer
	err := runArchive(testCmd(&out), []string{"seeded"})
	assert.ErrorContains(t, err, "archive is not configured")
}

func TestSnapshotOptionsKeepCatalogOrder(t *testing.T) {
	now := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	list := []*snapshot.Info{
		{Name: "newer", Database: "screening", CreatedAt: now.Add(-time.Hour), SizeBytes: 2000},
		{Name: "older", Database: "screening", CreatedAt: now.Add(-48 * time.Hour), SizeBytes: 1000},
	}

	opts := snapshotOptions(list, now)
	require.Len(t, opts, 2)
	assert.Equal(t, "newer", opts[0].Value)
	assert.Equal(t, "older", opts[1].Label)
	assert.Equal(t, "screening, taken 1 hour ago, 2.0 kB", opts[0].Description)
}
