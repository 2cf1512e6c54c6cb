//go:build integration

package snapshot

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const mysqlPassword = "e2e-root"

func startMySQL(t *testing.T) Database {
	t.Helper()

	for _, bin := range []string{"mysql", "mysqldump"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed", bin)
		}
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      "screening",
		},
		// The entrypoint starts a temporary server first; the second
		// "ready for connections" is the real one.
		WaitingFor: wait.ForAll(
			wait.ForLog("ready for connections").WithOccurrence(2),
			wait.ForListeningPort("3306/tcp"),
		).WithDeadline(3 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start mysql container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306")
	require.NoError(t, err)

	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return Database{
		Host:     host,
		Port:     p,
		User:     "root",
		Password: mysqlPassword,
		Name:     "screening",
	}
}

func execSQL(t *testing.T, db Database, sql string) string {
	t.Helper()
	var out bytes.Buffer
	err := execRunner{}.Run(context.Background(), Command{
		Name:   "mysql",
		Args:   append(db.connArgs(), "--batch", "--skip-column-names", db.Name),
		Env:    db.env(),
		Stdin:  strings.NewReader(sql),
		Stdout: &out,
	})
	require.NoError(t, err)
	return strings.TrimSpace(out.String())
}

func TestMySQLSnapshotRoundTrip(t *testing.T) {
	db := startMySQL(t)
	execSQL(t, db, `
CREATE TABLE users (id INT PRIMARY KEY, email VARCHAR(255));
INSERT INTO users VALUES (1, 'a@e2e.example.com'), (2, 'b@e2e.example.com');
`)

	catalog, err := OpenCatalog(":memory:")
	require.NoError(t, err)
	defer catalog.Close()

	m := NewManager(Config{Dir: t.TempDir(), MaxAge: time.Hour, Database: db}, catalog)

	info, err := m.Create(t.Context(), "baseline")
	require.NoError(t, err)
	assert.Contains(t, info.Tables, "users")

	execSQL(t, db, "DELETE FROM users;")
	assert.Equal(t, "0", execSQL(t, db, "SELECT COUNT(*) FROM users;"))

	require.NoError(t, m.Restore(t.Context(), "baseline"))
	assert.Equal(t, "2", execSQL(t, db, "SELECT COUNT(*) FROM users;"))

	res, err := m.Resolve(t.Context(), ModeAuto)
	require.NoError(t, err)
	assert.True(t, res.UseSnapshot())
}
