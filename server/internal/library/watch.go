package library

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses bursts of file system events (copying a folder, editor
// saves) into one refresh.
const debounce = 250 * time.Millisecond

// Watch monitors the library directory tree and rebuilds the index after
// changes. onChange is called with the new file list whenever it differs
// from the previous one. SetExclude extends the watch to directories that
// are no longer excluded. Watch runs until ctx is cancelled.
func (l *Library) Watch(ctx context.Context, onChange func(files []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := l.addTree(watcher, l.root); err != nil {
		return err
	}
	slog.Info("library: watching for changes", "dir", l.root)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			// New subdirectories need their own watch.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := l.addTree(watcher, event.Name); err != nil {
						slog.Warn("library: watch subdirectory failed", "dir", event.Name, "err", err)
					}
				}
			}
			pending = time.After(debounce)

		case <-l.rewatch:
			if err := l.addTree(watcher, l.root); err != nil {
				slog.Warn("library: rewatch failed", "err", err)
			}
			// Catch files created before the new watches were in place.
			pending = time.After(debounce)

		case <-pending:
			pending = nil
			changed, err := l.Refresh()
			if err != nil {
				slog.Error("library: refresh failed, keeping previous index", "err", err)
				continue
			}
			if changed {
				files := l.Files()
				slog.Info("library: files changed", "files", len(files))
				onChange(files)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("library: watcher error", "err", err)
		}
	}
}

// addTree adds dir and every listable subdirectory to watcher.
func (l *Library) addTree(watcher *fsnotify.Watcher, dir string) error {
	l.mu.RLock()
	exclude := l.exclude
	l.mu.RUnlock()

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != l.root && (hidden(d.Name()) || exclude[d.Name()]) {
			return fs.SkipDir
		}
		return watcher.Add(p)
	})
}
