// Package version holds build-time identifying information, overridden via
// linker flags at release build time.
package version

// Version, Commit, and Date are set via -ldflags at build time; their
// zero values identify a development build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
