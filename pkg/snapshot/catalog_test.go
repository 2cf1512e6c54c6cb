package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalog_PutGetList(t *testing.T) {
	c := newTestCatalog(t)
	ctx := t.Context()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, &Info{Name: "older", Database: "screening", CreatedAt: base, Tables: []string{"users"}}))
	require.NoError(t, c.Put(ctx, &Info{Name: "newer", Database: "screening", CreatedAt: base.Add(time.Hour), SizeBytes: 42}))

	got, err := c.Get(ctx, "older")
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, got.Tables)
	assert.True(t, base.Equal(got.CreatedAt))

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].Name)
	assert.Equal(t, int64(42), all[0].SizeBytes)
}

func TestCatalog_PutReplaces(t *testing.T) {
	c := newTestCatalog(t)
	ctx := t.Context()

	require.NoError(t, c.Put(ctx, &Info{Name: "s", Database: "a", CreatedAt: time.Now()}))
	require.NoError(t, c.Put(ctx, &Info{Name: "s", Database: "b", CreatedAt: time.Now()}))

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].Database)
}

func TestCatalog_NotFound(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	assert.ErrorIs(t, c.SetArchiveKey(t.Context(), "missing", "k"), ErrSnapshotNotFound)
	assert.NoError(t, c.Delete(t.Context(), "missing"))
}

func TestCatalog_OlderThanAndArchiveKey(t *testing.T) {
	c := newTestCatalog(t)
	ctx := t.Context()
	now := time.Now()

	require.NoError(t, c.Put(ctx, &Info{Name: "a", Database: "db", CreatedAt: now.Add(-72 * time.Hour)}))
	require.NoError(t, c.Put(ctx, &Info{Name: "b", Database: "db", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, c.Put(ctx, &Info{Name: "c", Database: "db", CreatedAt: now}))

	old, err := c.OlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, old, 2)
	assert.Equal(t, "a", old[0].Name)

	require.NoError(t, c.SetArchiveKey(ctx, "c", "snapshots/c.sql"))
	got, err := c.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "snapshots/c.sql", got.ArchiveKey)
}

func TestCatalog_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")

	c, err := OpenCatalog(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(t.Context(), &Info{Name: "persisted", Database: "db", CreatedAt: time.Now()}))
	require.NoError(t, c.Close())

	c, err = OpenCatalog(path)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(t.Context(), "persisted")
	assert.NoError(t, err)
}
