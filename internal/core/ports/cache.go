package ports

import "context"

// Cache is the content-addressed output-cache backend: a local directory or
// a remote object store, keyed by a cacheable fingerprint string.
//
//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type Cache interface {
	// Has reports whether an entry exists for fingerprint, without
	// restoring it.
	Has(ctx context.Context, fingerprint string) (bool, error)

	// Restore writes the cached outputs for fingerprint into packageDir,
	// relative to the output paths declared at the time of Put. Returns
	// ErrCacheMiss-wrapping error if no entry exists.
	Restore(ctx context.Context, fingerprint, packageDir string, outputs []string) error

	// Put stores packageDir's current contents at the given output paths
	// under fingerprint. Implementations must guarantee per-fingerprint
	// atomicity: a reader never observes a partially written entry.
	Put(ctx context.Context, fingerprint, packageDir string, outputs []string) error
}

// WorkerPool bounds the number of concurrently running one-shot script
// commands. Services and no-command executions never acquire a slot.
type WorkerPool interface {
	// Acquire blocks until a slot is available or ctx is done.
	Acquire(ctx context.Context) error

	// Release returns a previously acquired slot.
	Release()
}

// GlobMatcher expands files/output/packageLocks glob patterns against a
// package directory into a sorted list of relative paths.
type GlobMatcher interface {
	// Expand returns the sorted, deduplicated list of paths under dir that
	// match patterns, honoring "!"-prefixed negation patterns.
	Expand(dir string, patterns []string) ([]string, error)

	// Groups partitions patterns into watch groups: all non-negated patterns
	// share one group, and each negated pattern gets its own group, so a
	// toggled ignore rule doesn't require re-watching everything else.
	Groups(patterns []string) [][]string
}
