package bank

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the bursts of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the bank at path whenever the file changes and passes each
// successfully parsed bank to onChange. Reload failures, including invalid
// bank data, go to onError and the previous bank stays in effect.
//
// The parent directory is watched rather than the file so that editors which
// replace the file by rename keep triggering reloads. Watch blocks until ctx
// is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Bank), onError func(error)) error {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDelay)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}

		case <-timer.C:
			b, err := Load(path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(b)
		}
	}
}
