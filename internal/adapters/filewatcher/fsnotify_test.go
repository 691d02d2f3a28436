package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriswap/internal/domain/ports"
)

func TestFSNotifyWatcher_Creation(t *testing.T) {
	watcher, err := NewFSNotifyWatcher([]string{".json", ".csv"})
	require.NoError(t, err)
	defer watcher.Stop()
}

func TestFSNotifyWatcher_DefaultExtensions(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Equal(t, []string{".json"}, watcher.extensions)
}

func TestFSNotifyWatcher_WatchDirectory(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewFSNotifyWatcher([]string{".json"})
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "foods.json"), []byte("[]"), 0644)
	}()

	select {
	case event := <-events:
		assert.Equal(t, ports.FileCreated, event.Operation)
		assert.Equal(t, filepath.Join(dir, "foods.json"), event.Path)
	case <-ctx.Done():
		t.Error("timeout waiting for event")
	}
}

func TestFSNotifyWatcher_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewFSNotifyWatcher([]string{".json"})
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644)

	select {
	case event := <-events:
		t.Errorf("should not receive event for %s", event.Path)
	case <-time.After(300 * time.Millisecond):
		// Expected - no event
	}
}

func TestFSNotifyWatcher_Stop(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(nil)
	require.NoError(t, err)
	assert.NoError(t, watcher.Stop())
}
