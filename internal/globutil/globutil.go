// Package globutil expands files/output/watch-set glob patterns against a
// package directory, supporting "**" recursive segments and "!"-prefixed
// negation, entirely on the standard library.
package globutil

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wireit-go/wireit/internal/core/ports"
)

var _ ports.GlobMatcher = (*Matcher)(nil)

// Matcher implements ports.GlobMatcher over path/filepath and io/fs.WalkDir.
type Matcher struct{}

// New constructs a Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Expand returns the sorted, deduplicated list of paths under dir, relative
// to dir, that match patterns. A pattern prefixed with "!" removes from the
// result set any path matched by the remainder of that pattern. Negations
// are applied after all positive patterns have been evaluated, so a negated
// path stays excluded wherever the negation appears in patterns.
func (m *Matcher) Expand(dir string, patterns []string) ([]string, error) {
	included := map[string]bool{}
	var negations []string

	for _, p := range patterns {
		if neg, ok := stripNegation(p); ok {
			negations = append(negations, neg)
			continue
		}
		matches, err := expandOne(dir, p)
		if err != nil {
			return nil, err
		}
		for _, rel := range matches {
			included[rel] = true
		}
	}

	for _, neg := range negations {
		matches, err := expandOne(dir, neg)
		if err != nil {
			return nil, err
		}
		for _, rel := range matches {
			delete(included, rel)
		}
	}

	out := make([]string, 0, len(included))
	for rel := range included {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

// Groups partitions patterns into watch groups: every non-negated pattern
// shares one group, and each negated pattern gets its own single-pattern
// group, so toggling one ignore rule doesn't force re-watching everything
// else declared in the same field.
func (m *Matcher) Groups(patterns []string) [][]string {
	var groups [][]string
	var positive []string
	for _, p := range patterns {
		if _, ok := stripNegation(p); ok {
			groups = append(groups, []string{p})
			continue
		}
		positive = append(positive, p)
	}
	if len(positive) > 0 {
		groups = append([][]string{positive}, groups...)
	}
	return groups
}

// Matches reports whether path, relative to dir, matches patterns, checked
// against a single candidate path rather than a filesystem listing. Patterns
// are applied in order and the last matching one decides, so the result
// agrees with Expand when every negation follows the positive patterns it
// narrows. Used by the
// watcher, where a just-deleted file no longer exists to be listed by
// filepath.Glob but still needs to be recognized as watched.
func (m *Matcher) Matches(dir, path string, patterns []string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	relSlash := strings.Split(filepath.ToSlash(rel), "/")

	matched := false
	for _, p := range patterns {
		neg, isNeg := stripNegation(p)
		pattern := p
		if isNeg {
			pattern = neg
		}
		segments := strings.Split(filepath.ToSlash(pattern), "/")
		if matchSegments(segments, relSlash) {
			matched = !isNeg
		}
	}
	return matched
}

func stripNegation(pattern string) (string, bool) {
	if strings.HasPrefix(pattern, "!") {
		return pattern[1:], true
	}
	return "", false
}

// expandOne matches one pattern against dir, returning slash-separated paths
// relative to dir. A pattern containing no "**" segment is resolved directly
// with filepath.Glob for speed; one containing "**" walks the tree once,
// matching each candidate path against the pattern's segments.
func expandOne(dir, pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		rels := make([]string, 0, len(matches))
		for _, abs := range matches {
			rel, err := filepath.Rel(dir, abs)
			if err != nil {
				continue
			}
			rels = append(rels, filepath.ToSlash(rel))
		}
		return rels, nil
	}

	segments := strings.Split(filepath.ToSlash(pattern), "/")
	var rels []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		relSlash := filepath.ToSlash(rel)
		if matchSegments(segments, strings.Split(relSlash, "/")) {
			rels = append(rels, relSlash)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// matchSegments matches a "**"-aware pattern, split on "/", against a
// candidate path split on "/". "**" matches zero or more whole path
// segments; every other segment is matched with filepath.Match.
func matchSegments(pattern, candidate []string) bool {
	if len(pattern) == 0 {
		return len(candidate) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], candidate) {
			return true
		}
		if len(candidate) == 0 {
			return false
		}
		return matchSegments(pattern, candidate[1:])
	}
	if len(candidate) == 0 {
		return false
	}
	ok, err := filepath.Match(pattern[0], candidate[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], candidate[1:])
}
