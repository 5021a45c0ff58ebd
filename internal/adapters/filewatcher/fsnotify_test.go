package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogateria/supportbot/internal/domain/ports"
)

func TestFSNotifyWatcher_Creation(t *testing.T) {
	watcher, err := NewFSNotifyWatcher([]string{".json", ".yaml"}, time.Second, nil)
	require.NoError(t, err)
	defer watcher.Stop()
}

func TestFSNotifyWatcher_Defaults(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(nil, 0, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Equal(t, []string{".json"}, watcher.extensions)
	assert.Equal(t, 2*time.Second, watcher.debounce)
}

func TestFSNotifyWatcher_EmitsDebouncedEvent(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewFSNotifyWatcher([]string{".json"}, 100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "products.json")
	go func() {
		time.Sleep(50 * time.Millisecond)
		// A burst of writes should collapse into one event.
		os.WriteFile(path, []byte(`{}`), 0644)
		os.WriteFile(path, []byte(`{"products":[]}`), 0644)
	}()

	select {
	case event := <-events:
		assert.Equal(t, path, event.Path)
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}

	select {
	case event := <-events:
		t.Fatalf("unexpected second event for %s", event.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFSNotifyWatcher_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewFSNotifyWatcher([]string{".json"}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644)

	select {
	case event := <-events:
		t.Fatalf("unexpected event for %s", event.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFSNotifyWatcher_DeleteOperation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	watcher, err := NewFSNotifyWatcher([]string{".json"}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.Remove(path)
	}()

	select {
	case event := <-events:
		assert.Equal(t, ports.FileDeleted, event.Operation)
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}
}

func TestFSNotifyWatcher_Stop(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(nil, 0, nil)
	require.NoError(t, err)
	assert.NoError(t, watcher.Stop())
}
