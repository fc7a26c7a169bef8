// Package local implements the on-disk output cache: one tar blob per
// cacheable fingerprint, stored in the directory passed to New.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/wireit-go/wireit/internal/cache/archive"
	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Cache = (*Cache)(nil)

// Cache implements ports.Cache as a flat directory of fingerprint-addressed
// tar blobs shared across every script in one invocation: the blob name is
// the fingerprint's own hash, so two scripts that happen to fingerprint
// identically (same command, same input contents) share one blob instead
// of duplicating it. Callers needing per-script isolation can still pass a
// dir scoped with domain.CacheDir(packageDir, name).
type Cache struct {
	dir string

	mu     sync.Mutex
	staged map[uint64]bool // xxhash of fingerprint -> already written this run
}

// New constructs a Cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{dir: dir, staged: map[uint64]bool{}}
}

func (c *Cache) blobPath(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".tar")
}

// Has implements ports.Cache.
func (c *Cache) Has(_ context.Context, fingerprint string) (bool, error) {
	_, err := os.Stat(c.blobPath(fingerprint))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, zerr.Wrap(err, domain.ErrCacheReadFailed.Error())
}

// Restore implements ports.Cache.
func (c *Cache) Restore(_ context.Context, fingerprint, packageDir string, _ []string) error {
	path := c.blobPath(fingerprint)
	// #nosec G304 -- path is derived from a fingerprint hash, not user input
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return zerr.Wrap(err, domain.ErrCacheMiss.Error())
		}
		return zerr.Wrap(err, domain.ErrCacheReadFailed.Error())
	}
	defer f.Close() //nolint:errcheck

	if err := archive.Extract(f, packageDir); err != nil {
		return zerr.Wrap(err, domain.ErrCacheReadFailed.Error())
	}
	return nil
}

// Put implements ports.Cache. It writes to a temp file in dir and renames
// into place, so a concurrent Restore never observes a partial blob.
func (c *Cache) Put(_ context.Context, fingerprint, packageDir string, outputs []string) error {
	key := xxhash.Sum64String(fingerprint)

	c.mu.Lock()
	if c.staged[key] {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := os.MkdirAll(c.dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	tmp, err := os.CreateTemp(c.dir, "staging-*.tar")
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op once renamed

	if err := archive.Write(tmp, packageDir, outputs); err != nil {
		tmp.Close() //nolint:errcheck
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	if err := os.Rename(tmpPath, c.blobPath(fingerprint)); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	c.mu.Lock()
	c.staged[key] = true
	c.mu.Unlock()
	return nil
}
