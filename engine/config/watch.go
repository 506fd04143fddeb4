package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config at path whenever it is written and passes each valid
// reload to fn. Invalid edits are logged and skipped, so fn only sees validated
// configs. The parent directory is watched so editors that replace the file on
// save are followed. Watch blocks until ctx is done.
//
// Parameters:
//   - ctx: stops the watcher when cancelled
//   - path: the config file
//   - fn: called on the watcher goroutine with each reloaded config
//
// Returns:
//   - error: if the watcher cannot be started; nil after ctx is cancelled
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	if _, err := FormatFromPath(path); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	log.Printf("[Config] watching %s", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			c, err := Load(abs)
			if err != nil {
				log.Printf("[Config] reload skipped: %v", err)
				continue
			}
			log.Printf("[Config] reloaded %s", abs)
			fn(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Config] watcher error: %v", err)
		}
	}
}
