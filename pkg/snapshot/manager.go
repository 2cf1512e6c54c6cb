package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/internal/telemetry"
)

// Database is the MySQL database snapshots are taken from and restored to.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// DumpCommand and ClientCommand default to mysqldump and mysql.
	DumpCommand   string
	ClientCommand string
}

func (d Database) connArgs() []string {
	// TCP even for "localhost", where the clients would otherwise look
	// for a local socket.
	args := []string{"--protocol=TCP", "--host=" + d.Host, "--user=" + d.User}
	if d.Port != 0 {
		args = append(args, "--port="+strconv.Itoa(d.Port))
	}
	return args
}

// env passes the password through MYSQL_PWD so it never shows up in the
// process list.
func (d Database) env() []string {
	if d.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + d.Password}
}

// Config configures a Manager.
type Config struct {
	// Dir holds the dumps and sidecars.
	Dir string

	// MaxAge is the AUTO-mode freshness limit.
	MaxAge time.Duration

	Database Database
}

// Manager creates, restores and prunes snapshots.
type Manager struct {
	cfg     Config
	catalog *Catalog
	runner  CommandRunner
	archive *Archive
	metrics Metrics
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option {
	return func(m *Manager) {
		m.runner = r
	}
}

// WithArchive enables the S3 archive.
func WithArchive(a *Archive) Option {
	return func(m *Manager) {
		m.archive = a
	}
}

// WithMetrics reports snapshot operations to mt.
func WithMetrics(mt Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager creates a manager over the snapshot directory and catalog.
func NewManager(cfg Config, catalog *Catalog, opts ...Option) *Manager {
	if cfg.Database.DumpCommand == "" {
		cfg.Database.DumpCommand = "mysqldump"
	}
	if cfg.Database.ClientCommand == "" {
		cfg.Database.ClientCommand = "mysql"
	}

	m := &Manager{
		cfg:     cfg,
		catalog: catalog,
		runner:  execRunner{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) observe(op string, start time.Time, err error) {
	if m.metrics != nil {
		m.metrics.ObserveOperation(op, time.Since(start), err)
	}
}

// Resolve applies ResolveMode with the manager as snapshot source.
func (m *Manager) Resolve(ctx context.Context, mode Mode) (Resolution, error) {
	res, err := ResolveMode(ctx, mode, m, m.cfg.MaxAge)
	if err != nil {
		return res, err
	}

	args := []any{logger.KeyDataMode, string(res.Effective), "reason", res.Reason}
	if res.Snapshot != nil {
		args = append(args, logger.KeySnapshot, res.Snapshot.Name)
	}
	logger.InfoCtx(ctx, "Test data mode resolved", args...)
	return res, nil
}

// Latest returns the newest catalogued snapshot whose dump is on disk.
func (m *Manager) Latest(ctx context.Context) (*Info, error) {
	all, err := m.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range all {
		if _, err := os.Stat(dumpPath(m.cfg.Dir, info.Name)); err == nil {
			return info, nil
		}
	}
	return nil, ErrSnapshotNotFound
}

// List returns the catalogued snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]*Info, error) {
	return m.catalog.List(ctx)
}

// Get returns a catalogued snapshot.
func (m *Manager) Get(ctx context.Context, name string) (*Info, error) {
	return m.catalog.Get(ctx, name)
}

// Create dumps the database to <name>.sql, writes the sidecar and records
// it in the catalog. An empty name gets a timestamped one.
func (m *Manager) Create(ctx context.Context, name string) (info *Info, err error) {
	start := time.Now()
	defer func() { m.observe("create", start, err) }()

	if name == "" {
		name = DefaultName(m.now())
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSnapshotSpan(ctx, "create", name)
	defer span.End()

	if err := os.MkdirAll(m.cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	final := dumpPath(m.cfg.Dir, name)
	tmp := final + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to create dump file: %w", err)
	}

	hasher := sha256.New()
	counter := &countingWriter{}
	tables := &tableCollector{}

	db := m.cfg.Database
	args := append(db.connArgs(),
		"--single-transaction",
		"--routines",
		"--triggers",
		"--no-tablespaces",
		"--skip-dump-date",
		db.Name,
	)

	runErr := m.runner.Run(ctx, Command{
		Name:   db.DumpCommand,
		Args:   args,
		Env:    db.env(),
		Stdout: io.MultiWriter(f, hasher, counter, tables),
	})
	closeErr := f.Close()
	if runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		os.Remove(tmp)
		telemetry.RecordError(ctx, runErr)
		logger.ErrorCtx(ctx, "❌ Snapshot dump failed", logger.KeySnapshot, name, logger.Err(runErr))
		return nil, fmt.Errorf("dump %s: %w", db.Name, runErr)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to finalize dump: %w", err)
	}

	info = &Info{
		Name:      name,
		Database:  db.Name,
		CreatedAt: m.now().UTC(),
		SizeBytes: counter.n,
		SHA256:    hex.EncodeToString(hasher.Sum(nil)),
		Tables:    tables.names(),
	}
	if err := WriteSidecar(m.cfg.Dir, info); err != nil {
		return nil, err
	}
	if err := m.catalog.Put(ctx, info); err != nil {
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.RecordSize(info.SizeBytes)
	}
	logger.InfoCtx(ctx, "✅ Snapshot created",
		logger.KeySnapshot, name,
		logger.KeyPath, final,
		"size_bytes", info.SizeBytes,
		"tables", len(info.Tables),
		logger.DurationMs(time.Since(start)))
	return info, nil
}

// Verify checks the dump of name against the digest in its sidecar.
func (m *Manager) Verify(ctx context.Context, name string) (*Info, error) {
	info, err := m.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(dumpPath(m.cfg.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s.sql missing", ErrSnapshotNotFound, name)
		}
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to hash dump: %w", err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); info.SHA256 != "" && sum != info.SHA256 {
		return nil, fmt.Errorf("%w: %s has %s, sidecar says %s", ErrChecksumMismatch, name, sum, info.SHA256)
	}
	return info, nil
}

// lookup finds name in the catalog, falling back to its sidecar.
func (m *Manager) lookup(ctx context.Context, name string) (*Info, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	info, err := m.catalog.Get(ctx, name)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, ErrSnapshotNotFound) {
		return nil, err
	}
	return ReadSidecar(m.cfg.Dir, name)
}

// Restore loads name into the database. A dump missing locally is fetched
// from the archive when one is configured.
func (m *Manager) Restore(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { m.observe("restore", start, err) }()

	ctx, span := telemetry.StartSnapshotSpan(ctx, "restore", name)
	defer span.End()

	if _, statErr := os.Stat(dumpPath(m.cfg.Dir, name)); os.IsNotExist(statErr) && m.archive != nil {
		info, err := m.archive.Download(ctx, m.cfg.Dir, name)
		if err != nil {
			return err
		}
		if err := m.catalog.Put(ctx, info); err != nil {
			return err
		}
	}

	if _, err := m.Verify(ctx, name); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	f, err := os.Open(dumpPath(m.cfg.Dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	db := m.cfg.Database
	err = m.runner.Run(ctx, Command{
		Name:  db.ClientCommand,
		Args:  append(db.connArgs(), db.Name),
		Env:   db.env(),
		Stdin: f,
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "❌ Snapshot restore failed", logger.KeySnapshot, name, logger.Err(err))
		return fmt.Errorf("restore %s: %w", name, err)
	}

	logger.InfoCtx(ctx, "✅ Snapshot restored",
		logger.KeySnapshot, name, logger.DurationMs(time.Since(start)))
	return nil
}

// Prune deletes snapshots older than maxAge and returns them. A zero maxAge
// uses the configured one.
func (m *Manager) Prune(ctx context.Context, maxAge time.Duration) (pruned []*Info, err error) {
	start := time.Now()
	defer func() { m.observe("prune", start, err) }()

	if maxAge <= 0 {
		maxAge = m.cfg.MaxAge
	}
	if maxAge <= 0 {
		return nil, errors.New("prune requires a positive max age")
	}

	old, err := m.catalog.OlderThan(ctx, m.now().Add(-maxAge))
	if err != nil {
		return nil, err
	}

	for _, info := range old {
		if err := m.Delete(ctx, info.Name); err != nil {
			return pruned, err
		}
		pruned = append(pruned, info)
	}

	if len(pruned) > 0 {
		logger.InfoCtx(ctx, "Snapshots pruned", logger.KeyCount, len(pruned))
	}
	return pruned, nil
}

// Delete removes the files and catalog entry of name. Archived copies are
// kept.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	for _, p := range []string{dumpPath(m.cfg.Dir, name), sidecarPath(m.cfg.Dir, name)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(p), err)
		}
	}
	return m.catalog.Delete(ctx, name)
}

// Archive uploads name to the configured archive and records its key.
func (m *Manager) Archive(ctx context.Context, name string) (key string, err error) {
	start := time.Now()
	defer func() { m.observe("archive", start, err) }()

	if m.archive == nil {
		return "", errors.New("snapshot archive is not configured")
	}

	info, err := m.Verify(ctx, name)
	if err != nil {
		return "", err
	}

	key, err = m.archive.Upload(ctx, m.cfg.Dir, info)
	if err != nil {
		return "", err
	}

	info.ArchiveKey = key
	if err := WriteSidecar(m.cfg.Dir, info); err != nil {
		return "", err
	}
	if err := m.catalog.Put(ctx, info); err != nil {
		return "", err
	}
	return key, nil
}

// Rescan registers every sidecar in the snapshot directory in the catalog
// and drops catalog entries whose sidecar is gone. It returns the number of
// snapshots found.
func (m *Manager) Rescan(ctx context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(m.cfg.Dir, "*.json"))
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(matches))
	for _, p := range matches {
		name := strings.TrimSuffix(filepath.Base(p), ".json")
		if ValidateName(name) != nil {
			continue
		}
		info, err := ReadSidecar(m.cfg.Dir, name)
		if err != nil {
			logger.WarnCtx(ctx, "Skipping unreadable sidecar", logger.KeyPath, p, logger.Err(err))
			continue
		}
		if err := m.catalog.Put(ctx, info); err != nil {
			return 0, err
		}
		seen[info.Name] = true
	}

	all, err := m.catalog.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, info := range all {
		if !seen[info.Name] {
			if err := m.catalog.Delete(ctx, info.Name); err != nil {
				return 0, err
			}
		}
	}

	return len(seen), nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// tableCollector extracts table names from "CREATE TABLE `name`" lines of a
// dump without buffering whole lines; extended INSERT lines can be huge.
type tableCollector struct {
	line   []byte
	tables []string
}

const createTablePrefix = "CREATE TABLE `"

func (c *tableCollector) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			c.flush()
			continue
		}
		if len(c.line) < 256 {
			c.line = append(c.line, b)
		}
	}
	return len(p), nil
}

func (c *tableCollector) flush() {
	line := string(c.line)
	c.line = c.line[:0]

	rest, ok := strings.CutPrefix(line, createTablePrefix)
	if !ok {
		return
	}
	if name, _, ok := strings.Cut(rest, "`"); ok && name != "" {
		c.tables = append(c.tables, name)
	}
}

func (c *tableCollector) names() []string {
	c.flush()
	if c.tables == nil {
		return []string{}
	}
	return c.tables
}
