package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchTreeSeesNestedFiles(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "statuses", "2013", "01")
	require.NoError(t, os.MkdirAll(nested, 0755))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()
	require.NoError(t, watchTree(watcher, root))

	file := filepath.Join(nested, "20130102-120700")
	require.NoError(t, os.WriteFile(file, []byte("published 2013-01-02 12:07:00\n"), 0644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case event := <-watcher.Events:
			if event.Name == file {
				assert.NotZero(t, event.Op&(fsnotify.Create|fsnotify.Write))
				return
			}
		case err := <-watcher.Errors:
			require.NoError(t, err)
		case <-timeout:
			t.Fatal("no event for nested file")
		}
	}
}

func TestWatchTreeMissingDir(t *testing.T) {
	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()
	assert.Error(t, watchTree(watcher, filepath.Join(t.TempDir(), "missing")))
}
