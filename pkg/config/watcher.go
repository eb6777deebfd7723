package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchFile invokes onChange whenever the file at path is written or
// (re)created. There is no polling fallback here — config reloads are
// best-effort, not load-bearing.
func watchFile(ctx context.Context, path string, onChange func()) error {
	if path == "" || onChange == nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					onChange()
				}
			case <-watcher.Errors:
				// Transient watch errors do not stop the watch loop.
			}
		}
	}()
	return nil
}

// debounce coalesces a burst of onChange calls into a single invocation
// after the quiet period elapses, matching the Manager's reload cadence.
func debounce(ctx context.Context, period time.Duration, fn func()) func() {
	var timer *time.Timer
	return func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(period, func() {
			select {
			case <-ctx.Done():
			default:
				fn()
			}
		})
	}
}
