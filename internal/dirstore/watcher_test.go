package dirstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	store := NewDisk(root, ".nacl", nil)
	w, err := NewWatcher(store, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
	})
	require.NoError(t, w.Start(ctx))
	return w
}

func nextBatch(t *testing.T, w *Watcher) Batch {
	t.Helper()
	select {
	case b := <-w.Batches():
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a watcher batch")
		return Batch{}
	}
}

func TestWatcher_BatchesWrites(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.nacl"), []byte("type a {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.nacl"), []byte("type b {}\n"), 0o644))

	batch := nextBatch(t, w)
	assert.ElementsMatch(t, []string{"a.nacl", "b.nacl"}, batch.Changed)
	assert.Empty(t, batch.Removed)
}

func TestWatcher_ReportsRemovals(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.nacl"), []byte("type a {}\n"), 0o644))
	w := startWatcher(t, root)

	require.NoError(t, os.Remove(filepath.Join(root, "a.nacl")))

	batch := nextBatch(t, w)
	assert.Empty(t, batch.Changed)
	assert.Equal(t, []string{"a.nacl"}, batch.Removed)
}

func TestWatcher_IgnoresForeignExtensions(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.nacl"), []byte("type a {}\n"), 0o644))

	batch := nextBatch(t, w)
	assert.Equal(t, []string{"a.nacl"}, batch.Changed, "non-source files must never surface in a batch")
}
