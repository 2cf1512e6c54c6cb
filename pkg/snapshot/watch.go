package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/screening-e2e/internal/logger"
)

// DefaultWatchDebounce is how long Watch waits after the last sidecar
// change before rescanning.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watch rescans the catalog whenever a sidecar in the snapshot directory is
// created, written, removed or renamed, until ctx is done. onRescan, if not
// nil, receives the result of every rescan after the initial one.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration, onRescan func(n int, err error)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(m.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.cfg.Dir, err)
	}

	// Catch up on anything that changed before the watch was in place.
	if _, err := m.Rescan(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.DebugCtx(ctx, "Sidecar changed", logger.KeyPath, event.Name)
			timer.Reset(debounce)

		case <-timer.C:
			n, err := m.Rescan(ctx)
			if err != nil {
				logger.WarnCtx(ctx, "Rescan failed", logger.KeyPath, m.cfg.Dir, logger.Err(err))
			} else {
				logger.InfoCtx(ctx, "Catalog rescanned", logger.KeyPath, m.cfg.Dir, logger.KeyCount, n)
			}
			if onRescan != nil {
				onRescan(n, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
