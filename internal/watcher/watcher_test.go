package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestEventTypeOf(t *testing.T) {
	assert.Equal(t, EventTypeCreated, eventTypeOf(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, EventTypeModified, eventTypeOf(fsnotify.Write))
	assert.Equal(t, EventTypeDeleted, eventTypeOf(fsnotify.Remove))
	assert.Equal(t, EventTypeRenamed, eventTypeOf(fsnotify.Rename))
	assert.Equal(t, EventTypeModified, eventTypeOf(fsnotify.Chmod))
}

func TestNewFileWatcher(t *testing.T) {
	w, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.NotNil(t, w.watcher)
	assert.NotNil(t, w.debouncer)
	assert.Empty(t, w.filters)
	assert.Empty(t, w.handlers)
}

func TestFileWatcherAddPath(t *testing.T) {
	w, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.NoError(t, w.AddPath(t.TempDir()))
	assert.Error(t, w.AddPath("/non/existent/path"))
	assert.Error(t, w.AddPath("  "))
}

func TestFileWatcherStopTwice(t *testing.T) {
	w, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestSameFile(t *testing.T) {
	same := SameFile("/tmp/dir/catalog.yml")
	assert.True(t, same("/tmp/dir/./catalog.yml"))
	assert.False(t, same("/tmp/dir/other.yml"))
}

func TestDebouncerCollapsesPerPath(t *testing.T) {
	d := &Debouncer{
		delay:  time.Hour,
		events: make(chan ChangeEvent, 10),
		output: make(chan []ChangeEvent, 1),
	}

	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "b.yml"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.yml"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.yml"})
	d.timer.Stop()
	d.flush()

	batch := <-d.output
	require.Len(t, batch, 2)
	assert.Equal(t, "a.yml", batch[0].Path)
	assert.Equal(t, "b.yml", batch[1].Path)
	assert.Equal(t, EventTypeModified, batch[1].Type)

	// nothing pending, nothing sent
	d.flush()
	assert.Empty(t, d.output)
}

func TestWatchFileReportsOnlyThatFile(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yml")
	require.NoError(t, os.WriteFile(catalog, []byte("en: {}\n"), 0o644))

	w, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var seen []ChangeEvent
	w.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, events...)
		return nil
	})
	require.NoError(t, w.WatchFile(catalog))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(catalog, []byte("en:\n  greeting: \"Hi, %s!\"\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, ev := range seen {
		assert.Equal(t, filepath.Base(catalog), filepath.Base(ev.Path))
	}
}

func TestHandlerErrorsDoNotStopProcessing(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	calls := 0
	w.AddHandler(func([]ChangeEvent) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return assert.AnError
	})
	require.NoError(t, w.AddPath(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	target := filepath.Join(dir, "catalog.yml")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 1
	}, 3*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(target, []byte("b"), 0o644))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, 3*time.Second, 10*time.Millisecond)
}
