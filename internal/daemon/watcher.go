package daemon

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watcherDebounce = 500 * time.Millisecond

// WatchDownloads watches the versioned-build downloads directory and
// flags an available update when new builds land. It blocks until the
// context is cancelled.
func (d *Daemon) WatchDownloads(ctx context.Context) error {
	if err := os.MkdirAll(d.cfg.DownloadsDir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(d.cfg.DownloadsDir); err != nil {
		return err
	}

	d.logger.Info("watching downloads directory for new builds", "dir", d.cfg.DownloadsDir)

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			d.logger.Debug("downloads directory changed", "file", event.Name, "op", event.Op)

			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watcherDebounce, func() {
				d.mu.Lock()
				d.updateAvailable = true
				d.mu.Unlock()
				d.logger.Info("new build detected, update available")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("downloads watcher error", "error", err)
		}
	}
}
