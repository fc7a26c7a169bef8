package domain

import "path/filepath"

// relPath renders target relative to base using forward slashes, the form
// used by cross-package dependency syntax and diagnostic labels.
func relPath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
