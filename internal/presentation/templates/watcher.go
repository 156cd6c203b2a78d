package templates

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of editor writes into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads the templates whenever a file under the templates directory
// changes, until ctx is done. Reload failures are logged and the previous
// set stays active. Hooks registered with OnReload run after each reload.
func (e *Engine) Watch(ctx context.Context, debounce time.Duration) error {
	if e.dir == "" {
		return fmt.Errorf("no templates directory to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}

	err = filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch templates directory %s: %w", e.dir, err)
	}

	go e.watchLoop(ctx, fsw, debounce)
	e.logger.Render().Info("Watching templates for changes", "dir", e.dir)
	return nil
}

func (e *Engine) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, debounce time.Duration) {
	defer fsw.Close()

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// new subdirectories need their own watch
				_ = fsw.Add(event.Name)
			}
			timer.Reset(debounce)

		case <-timer.C:
			changed, err := e.Reload(ctx)
			if err != nil {
				e.logger.Render().Error("Template reload failed, keeping previous templates", "error", err)
				continue
			}
			e.logger.Render().Info("Templates reloaded", "dir", e.dir, "changed", changed)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			e.logger.Render().Warn("Template watcher error", "error", err)
		}
	}
}
