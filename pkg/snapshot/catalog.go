package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// record is the catalog row for a snapshot.
type record struct {
	Name       string    `gorm:"primaryKey;size:128"`
	Database   string    `gorm:"not null;size:255"`
	CreatedAt  time.Time `gorm:"index;not null"`
	SizeBytes  int64     `gorm:"not null"`
	SHA256     string    `gorm:"size:64"`
	Tables     []string  `gorm:"serializer:json"`
	ArchiveKey string    `gorm:"size:1024"`
}

// TableName returns the table name for record.
func (record) TableName() string {
	return "snapshots"
}

func toRecord(info *Info) *record {
	return &record{
		Name:       info.Name,
		Database:   info.Database,
		CreatedAt:  info.CreatedAt.UTC(),
		SizeBytes:  info.SizeBytes,
		SHA256:     info.SHA256,
		Tables:     info.Tables,
		ArchiveKey: info.ArchiveKey,
	}
}

func (r *record) info() *Info {
	return &Info{
		Name:       r.Name,
		Database:   r.Database,
		CreatedAt:  r.CreatedAt,
		SizeBytes:  r.SizeBytes,
		SHA256:     r.SHA256,
		Tables:     r.Tables,
		ArchiveKey: r.ArchiveKey,
	}
}

// Catalog is a SQLite index of snapshots.
type Catalog struct {
	db *gorm.DB
}

// OpenCatalog opens (creating if needed) the catalog at path. The special
// path ":memory:" opens a private in-memory catalog.
func OpenCatalog(path string) (*Catalog, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would get its own empty memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Put inserts or replaces the entry for info.Name.
func (c *Catalog) Put(ctx context.Context, info *Info) error {
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(toRecord(info)).Error
	if err != nil {
		return fmt.Errorf("failed to record snapshot %s: %w", info.Name, err)
	}
	return nil
}

// Get returns the entry for name or ErrSnapshotNotFound.
func (c *Catalog) Get(ctx context.Context, name string) (*Info, error) {
	var r record
	if err := c.db.WithContext(ctx).Where("name = ?", name).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, err
	}
	return r.info(), nil
}

// List returns all entries, newest first.
func (c *Catalog) List(ctx context.Context) ([]*Info, error) {
	var rows []record
	if err := c.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*Info, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].info())
	}
	return out, nil
}

// OlderThan returns entries created before cutoff, oldest first.
func (c *Catalog) OlderThan(ctx context.Context, cutoff time.Time) ([]*Info, error) {
	var rows []record
	err := c.db.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*Info, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].info())
	}
	return out, nil
}

// SetArchiveKey records where name was archived.
func (c *Catalog) SetArchiveKey(ctx context.Context, name, key string) error {
	res := c.db.WithContext(ctx).Model(&record{}).Where("name = ?", name).Update("archive_key", key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	return nil
}

// Delete removes the entry for name. Deleting a missing entry is not an
// error.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	return c.db.WithContext(ctx).Where("name = ?", name).Delete(&record{}).Error
}
