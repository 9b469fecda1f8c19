package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hostnetbr/userstats/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const (
	confFile = "userstats.yaml"
	// Files keep arriving for a while after the first create event.
	settleDelay = 10 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := parseConfig(confFile)
	if err != nil {
		slog.Error(fmt.Sprintf("error reading config file: %v", err))
		return 1
	}

	slog.SetDefault(logging.New(cfg.Debug))

	if _, err := importOnce(cfg); err != nil {
		slog.Error(fmt.Sprintf("import failed: %v", err))
		return 1
	}
	if !cfg.Watch {
		return 0
	}

	if err := watch(cfg); err != nil {
		slog.Error(err.Error())
		return 1
	}
	return 0
}

// watch runs another import pass once new input has stopped arriving.
func watch(cfg Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	for _, src := range sources(cfg) {
		if err := os.MkdirAll(src.dir, 0755); err != nil {
			return fmt.Errorf("error creating input dir: %w", err)
		}
		if err := watchTree(watcher, src.dir); err != nil {
			return err
		}
	}
	slog.Info("watching for new descriptors", "dir", cfg.InDir)

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						slog.Error(err.Error())
					}
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				settle.Reset(settleDelay)
			}
		case <-settle.C:
			if _, err := importOnce(cfg); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error(fmt.Sprintf("error while watching input dir: %v", err))
		}
	}
}

// watchTree adds root and every directory below it to the watcher.
// fsnotify watches are not recursive.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error walking input dir: %w", err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("error adding watcher to input dir: %s. %w", path, err)
		}
		return nil
	})
}
