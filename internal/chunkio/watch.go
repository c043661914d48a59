package chunkio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitForManifest blocks until path exists (the external task executor
// produces a scatter task's chunk manifest out-of-process), or ctx is
// cancelled. A path that already exists returns immediately; otherwise the
// parent directory is watched so the wait never busy-polls.
func WaitForManifest(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("chunkio: new watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("chunkio: watch %s: %w", dir, err)
	}

	// The file may have appeared between the stat and the watch.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("chunkio: watcher closed")
			}
			return fmt.Errorf("chunkio: watcher error: %w", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("chunkio: watcher closed")
			}
			if ev.Name != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}
		}
	}
}
