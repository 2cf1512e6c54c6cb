package snapshot

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/screening-e2e/pkg/config"
)

// NewManagerFromConfig opens the catalog at cfg.CatalogPath and, when the
// archive is enabled, the S3 archive. Close the manager to release the
// catalog.
func NewManagerFromConfig(ctx context.Context, cfg config.SnapshotConfig, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir %s: %w", cfg.Dir, err)
	}

	catalog, err := OpenCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	if cfg.Archive.Enabled {
		archive, err := NewArchiveFromConfig(ctx, ArchiveConfig{
			Bucket:         cfg.Archive.Bucket,
			Prefix:         cfg.Archive.Prefix,
			Region:         cfg.Archive.Region,
			Endpoint:       cfg.Archive.Endpoint,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			_ = catalog.Close()
			return nil, err
		}
		opts = append([]Option{WithArchive(archive)}, opts...)
	}

	db := cfg.Database
	return NewManager(Config{
		Dir:    cfg.Dir,
		MaxAge: cfg.MaxAge,
		Database: Database{
			Host:          db.Host,
			Port:          db.Port,
			User:          db.User,
			Password:      db.Password,
			Name:          db.Name,
			DumpCommand:   db.DumpCommand,
			ClientCommand: db.ClientCommand,
		},
	}, catalog, opts...), nil
}

// Close releases the catalog.
func (m *Manager) Close() error {
	return m.catalog.Close()
}
