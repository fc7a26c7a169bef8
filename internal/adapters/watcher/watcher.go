// Package watcher implements ports.Watcher over fsnotify: watching a set of
// glob-pattern groups, each rooted at a package directory, and reporting
// add/change/unlink events against the patterns currently in the watch set.
package watcher

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/globutil"
)

var _ ports.Watcher = (*Watcher)(nil)

// skipDirs are directories never descended into while adding recursive
// watches, regardless of whether a group's patterns would otherwise match
// files under them.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".wireit":      true,
}

const eventChannelBuffer = 256

// Watcher watches the union of a set of WatchGroups using one fsnotify
// watcher, filtering raw filesystem events down to the ones that match a
// currently-watched group's patterns.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	matcher   *globutil.Matcher
	events    chan ports.WatchEvent

	mu      sync.Mutex
	groups  []ports.WatchGroup
	watched map[string]bool
}

// NewWatcher constructs a Watcher backed by a new fsnotify watcher.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsw,
		matcher:   globutil.New(),
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
		watched:   map[string]bool{},
	}, nil
}

// SetGroups replaces the watched groups wholesale: directories no longer
// covered by any group are removed from the underlying fsnotify watch, and
// each package directory named by a group is watched recursively.
func (w *Watcher) SetGroups(groups []ports.WatchGroup) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.groups = groups

	keep := map[string]bool{}
	for _, g := range groups {
		for dir := range w.walkRecursively(g.PackageDir) {
			keep[dir] = true
			if !w.watched[dir] {
				if err := w.fsWatcher.Add(dir); err != nil {
					return err
				}
				w.watched[dir] = true
			}
		}
	}
	for dir := range w.watched {
		if !keep[dir] {
			_ = w.fsWatcher.Remove(dir)
			delete(w.watched, dir)
		}
	}
	return nil
}

// Start begins watching in the background.
func (w *Watcher) Start(ctx context.Context) error {
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator over filtered filesystem events.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) walkRecursively(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // skip inaccessible directories, keep watching the rest
			}
			if !d.IsDir() {
				return nil
			}
			if skipDirs[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleRaw(ctx, event)
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handleRaw(ctx context.Context, event fsnotify.Event) {
	op, ok := convertOp(event.Op)
	if !ok {
		return
	}

	w.mu.Lock()
	matched := w.matches(event.Name)
	w.mu.Unlock()
	if !matched {
		return
	}

	select {
	case w.events <- ports.WatchEvent{Path: event.Name, Operation: op}:
	case <-ctx.Done():
		return
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDirs[info.Name()] {
			w.mu.Lock()
			for dir := range w.walkRecursively(event.Name) {
				if !w.watched[dir] {
					_ = w.fsWatcher.Add(dir)
					w.watched[dir] = true
				}
			}
			w.mu.Unlock()
		}
	}
}

// matches reports whether path falls under a group's package directory and
// matches one of its patterns. Must be called with w.mu held.
func (w *Watcher) matches(path string) bool {
	for _, g := range w.groups {
		if w.matcher.Matches(g.PackageDir, path, g.Patterns) {
			return true
		}
	}
	return false
}

func convertOp(op fsnotify.Op) (ports.WatchOp, bool) {
	switch {
	case op&fsnotify.Write == fsnotify.Write:
		return ports.OpChange, true
	case op&fsnotify.Create == fsnotify.Create:
		return ports.OpAdd, true
	case op&fsnotify.Remove == fsnotify.Remove, op&fsnotify.Rename == fsnotify.Rename:
		return ports.OpUnlink, true
	default:
		return 0, false
	}
}
