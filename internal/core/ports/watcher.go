package ports

import (
	"context"
	"iter"
)

// WatchOp represents the type of filesystem operation observed for a single
// path.
type WatchOp uint8

const (
	// OpAdd indicates a file was created.
	OpAdd WatchOp = iota
	// OpChange indicates a file was modified.
	OpChange
	// OpUnlink indicates a file was removed.
	OpUnlink
)

// WatchEvent is one filesystem change relevant to the current watch set.
type WatchEvent struct {
	// Path is the absolute path of the file that changed.
	Path string
	// Operation is the type of change that occurred.
	Operation WatchOp
}

// WatchGroup is one group of glob patterns rooted at a single package
// directory. Negated patterns are split into their own group by
// GlobMatcher.Groups to preserve locality.
type WatchGroup struct {
	PackageDir string
	Patterns   []string
}

// Watcher watches a set of groups of glob patterns, each rooted at a package
// directory, and reports add/change/unlink events against the patterns
// currently being watched.
type Watcher interface {
	// SetGroups replaces the watched groups wholesale. Called once per
	// watch-mode iteration after analysis, releasing any watches from the
	// previous iteration that are no longer part of the watch set.
	SetGroups(groups []WatchGroup) error

	// Start begins watching in the background.
	Start(ctx context.Context) error

	// Stop stops the watcher and releases all resources.
	Stop() error

	// Events returns an iterator of filesystem events.
	Events() iter.Seq[WatchEvent]
}
