package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Invalidator drops cached state when inputs change.
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates a cache whenever a watched CSV file is written,
// created, removed, or renamed.
type Watcher struct {
	watcher *fsnotify.Watcher
	target  Invalidator
	logger  *slog.Logger

	dirs  map[string]struct{} // directories whose *.csv files are all watched
	files map[string]struct{} // individually configured files
}

// NewWatcher registers the given input paths. Files are watched through their
// parent directory so that editors which replace files on save are still seen.
func NewWatcher(paths []string, target Invalidator, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher: fw,
		target:  target,
		logger:  logger,
		dirs:    make(map[string]struct{}),
		files:   make(map[string]struct{}),
	}

	watched := make(map[string]struct{})
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
		}

		dir := filepath.Clean(p)
		if info.IsDir() {
			w.dirs[dir] = struct{}{}
		} else {
			w.files[filepath.Clean(p)] = struct{}{}
			dir = filepath.Dir(dir)
		}

		if _, ok := watched[dir]; ok {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		watched[dir] = struct{}{}
	}
	return w, nil
}

// Run dispatches file events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("file watcher started", "dirs", len(w.dirs), "files", len(w.files))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopping", "reason", ctx.Err())
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				w.logger.Info("input file changed, invalidating dataset cache", "path", ev.Name, "op", ev.Op.String())
				w.target.Invalidate()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	if _, ok := w.files[name]; ok {
		return true
	}
	if _, ok := w.dirs[filepath.Dir(name)]; ok {
		return strings.EqualFold(filepath.Ext(name), ".csv")
	}
	return false
}
