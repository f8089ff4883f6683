package static

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watcherDebounce = 500 * time.Millisecond

// Change describes a fixture file that appeared, changed or went away.
type Change struct {
	Path    string // relative to the root, slash separated
	URL     string
	Removed bool
}

// Watcher reports fixture files as they are added to or removed from the
// static root. It exists so whoever is staging fixtures can see the URL each
// file is served at.
type Watcher struct {
	dir      string
	prefix   string
	debounce time.Duration
	logger   *slog.Logger
	onChange func([]Change)
	ready    chan struct{}
}

// NewWatcher creates a watcher for dir. URLs are reported under prefix.
// If onChange is nil, changes are logged.
func NewWatcher(dir, prefix string, onChange func([]Change)) *Watcher {
	w := &Watcher{
		dir:      dir,
		prefix:   prefix,
		debounce: watcherDebounce,
		logger:   slog.With("component", "watcher"),
		onChange: onChange,
		ready:    make(chan struct{}),
	}
	if w.onChange == nil {
		w.onChange = w.logChanges
	}
	return w
}

// Ready is closed once the root and its subdirectories are being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the root and its subdirectories until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.dir, nil); err != nil {
		return err
	}

	w.logger.Info("watching static dir for fixtures", "dir", w.dir)
	close(w.ready)

	pending := make(map[string]Change)
	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
		} else {
			timer.Reset(w.debounce)
		}
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&fsnotify.Create != 0:
				info, err := os.Stat(event.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					// Files may land in a new directory before it is watched.
					err := w.addTree(watcher, event.Name, func(p string) {
						w.record(pending, p, false)
					})
					if err != nil {
						w.logger.Warn("cannot watch new directory", "dir", event.Name, "error", err)
					}
				} else {
					w.record(pending, event.Name, false)
				}
			case event.Op&fsnotify.Write != 0:
				w.record(pending, event.Name, false)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.record(pending, event.Name, true)
			default:
				continue
			}
			schedule()

		case <-fire:
			fire = nil
			if len(pending) == 0 {
				continue
			}
			changes := make([]Change, 0, len(pending))
			for _, c := range pending {
				changes = append(changes, c)
			}
			sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
			clear(pending)
			w.onChange(changes)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// addTree watches dir and every directory below it, calling onFile for each
// regular file found along the way.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string, onFile func(string)) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		if onFile != nil && d.Type().IsRegular() {
			onFile(p)
		}
		return nil
	})
}

func (w *Watcher) record(pending map[string]Change, name string, removed bool) {
	rel, err := filepath.Rel(w.dir, name)
	if err != nil || !filepath.IsLocal(rel) {
		return
	}
	rel = filepath.ToSlash(rel)
	pending[rel] = Change{
		Path:    rel,
		URL:     path.Join(w.prefix, rel),
		Removed: removed,
	}
}

func (w *Watcher) logChanges(changes []Change) {
	for _, c := range changes {
		if c.Removed {
			w.logger.Info("fixture removed", "path", c.Path)
			continue
		}
		w.logger.Info("fixture available", "path", c.Path, "url", c.URL)
	}
}
