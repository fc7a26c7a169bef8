// Package fingerprint computes the canonical content-addressed identity of a
// script's command, options, hashed input files, and its dependencies'
// fingerprints.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"go.trai.ch/zerr"
)

// Computer computes fingerprints for script configurations, memoizing one
// per ScriptConfig for the lifetime of a single analysis.
type Computer struct {
	glob        ports.GlobMatcher
	interpreter string

	memo map[*domain.ScriptConfig]domain.Fingerprint
}

// NewComputer constructs a Computer. interpreter identifies the runtime
// version string recorded in every fingerprint, so a fingerprint computed
// under one Go version never matches one computed under another.
func NewComputer(glob ports.GlobMatcher, interpreter string) *Computer {
	return &Computer{glob: glob, interpreter: interpreter, memo: map[*domain.ScriptConfig]domain.Fingerprint{}}
}

// Compute returns the fingerprint for script, given the already-computed
// fingerprints of its direct dependencies keyed by their reference string.
// Computation is memoized per ScriptConfig: calling Compute twice for the
// same node within one analysis returns the cached value.
func (c *Computer) Compute(_ context.Context, script *domain.ScriptConfig, depFingerprints map[string]domain.Fingerprint) (domain.Fingerprint, error) {
	if fp, ok := c.memo[script]; ok {
		return fp, nil
	}

	files, err := c.hashFiles(script)
	if err != nil {
		return domain.Fingerprint{}, err
	}

	deps := make([]domain.Fingerprint, 0, len(script.Dependencies))
	depSerials := make(map[string]string, len(script.Dependencies))
	for _, edge := range script.Dependencies {
		fp, ok := depFingerprints[edge.Child.Reference.String()]
		if !ok {
			return domain.Fingerprint{}, zerr.New("missing dependency fingerprint for " + edge.Child.Reference.String())
		}
		deps = append(deps, fp)
		depSerials[edge.Child.Reference.String()] = fp.String()
	}

	cacheable := domain.IsCacheable(script.Command != "", len(script.Files) > 0 || len(script.PackageLocks) > 0, deps)

	fp := domain.NewFingerprint(
		runtime.GOOS,
		runtime.GOARCH,
		c.interpreter,
		script.Command,
		script.Clean,
		files,
		script.Output,
		depSerials,
		cacheable,
	)
	c.memo[script] = fp
	return fp, nil
}

// hashFiles expands script.Files against its package directory, resolves
// script.PackageLocks against the nearest ancestor directory that has each
// named lockfile, and hashes every resulting file streamingly with SHA-256
// into one relativePath -> digest map. A declared lockfile that does not
// exist anywhere up the tree is simply absent from the fingerprint, the same
// way a glob that matches nothing contributes no entries.
func (c *Computer) hashFiles(script *domain.ScriptConfig) (map[string]string, error) {
	packageDir := script.Reference.PackageDir.String()
	digests := make(map[string]string, len(script.Files)+len(script.PackageLocks))

	if len(script.Files) > 0 {
		paths, err := c.glob.Expand(packageDir, script.Files)
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrGlobExpandFailed.Error())
		}
		for _, rel := range paths {
			digest, err := hashFile(filepath.Join(packageDir, rel))
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", rel)
			}
			digests[rel] = digest
		}
	}

	for _, name := range script.PackageLocks {
		path, rel, found := findPackageLock(packageDir, name)
		if !found {
			continue
		}
		digest, err := hashFile(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", rel)
		}
		digests[rel] = digest
	}
	return digests, nil
}

// findPackageLock looks for name in packageDir and every ancestor directory
// up to the filesystem root, returning the first match's absolute path and
// its path relative to packageDir. Lockfiles conventionally live at a
// workspace root above the individual package that declares them.
func findPackageLock(packageDir, name string) (absPath, relPath string, found bool) {
	cur := filepath.Clean(packageDir)
	for {
		candidate := filepath.Join(cur, name)
		if _, err := os.Stat(candidate); err == nil {
			rel, err := filepath.Rel(packageDir, candidate)
			if err != nil {
				rel = candidate
			}
			return candidate, rel, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", "", false
		}
		cur = parent
	}
}

func hashFile(path string) (string, error) {
	// #nosec G304 -- path is resolved from a glob match against a declared package directory
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsFresh implements the freshness decision: a script is fresh iff a prior
// fingerprint is persisted for its reference and equals the current
// fingerprint and all declared outputs are present.
func IsFresh(store ports.StateStore, script *domain.ScriptConfig, current domain.Fingerprint) (bool, error) {
	packageDir := script.Reference.PackageDir.String()
	name := script.Reference.Name.String()

	persisted, err := store.Get(packageDir, name)
	if err != nil {
		return false, err
	}
	if persisted == "" || persisted != current.String() {
		return false, nil
	}

	for _, outputGlob := range script.Output {
		matches, err := filepath.Glob(filepath.Join(packageDir, outputGlob))
		if err != nil {
			return false, zerr.Wrap(err, domain.ErrGlobExpandFailed.Error())
		}
		if len(matches) == 0 {
			return false, nil
		}
	}
	return true, nil
}
