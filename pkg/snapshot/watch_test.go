package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WatchRescansOnSidecarChange(t *testing.T) {
	m, _, dir := newTestManager(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	rescans := make(chan int, 8)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, 20*time.Millisecond, func(n int, err error) {
			if err == nil {
				rescans <- n
			}
		})
	}()

	// Keep writing until the watcher is registered and picks one up.
	deadline := time.After(5 * time.Second)
	for got := false; !got; {
		require.NoError(t, WriteSidecar(dir, &Info{Name: "copied", Database: "screening", CreatedAt: time.Now()}))
		select {
		case n := <-rescans:
			assert.Equal(t, 1, n)
			got = true
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("catalog was not rescanned after a sidecar was written")
		}
	}

	_, err := m.Get(t.Context(), "copied")
	assert.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestManager_WatchMissingDir(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.cfg.Dir = t.TempDir() + "/missing"

	err := m.Watch(t.Context(), 0, nil)
	assert.Error(t, err)
}
