// Package ports defines the interfaces the core (analyzer, fingerprinter,
// executor, service execution, watcher) consumes from its collaborators.
package ports

import "github.com/wireit-go/wireit/internal/core/domain"

// ManifestLoader reads a package manifest file and parses its wireit
// stanza, retaining byte offsets for caret-style diagnostics.
//
//go:generate mockgen -source=manifest.go -destination=mocks/mock_manifest.go -package=mocks
type ManifestLoader interface {
	// Load reads and parses the manifest at packageDir, returning the
	// declared scripts keyed by name and any diagnostics encountered. A
	// malformed manifest yields a single file-level diagnostic and no
	// scripts.
	Load(packageDir string) (*ManifestDocument, domain.DiagnosticList)
}

// ManifestDocument is the parsed, offset-annotated contents of one manifest
// file, enough for the Analyzer to validate and wire a ScriptConfig graph
// without re-reading the file.
type ManifestDocument struct {
	PackageDir string
	Path       string

	// Scripts holds each wireit-declared script by name.
	Scripts map[string]RawScript

	// ScriptsField holds the top-level scripts[name] entries, used to
	// validate the "must equal the sentinel wireit" invariant.
	ScriptsField map[string]string

	// ScriptsLocations holds the source location of each scripts[name]
	// value, so a script-not-wireit diagnostic can point at it directly.
	ScriptsLocations map[string]domain.Location

	// WireitLocation is the location of the top-level wireit key, used as
	// the fallback primary location for document-level diagnostics.
	WireitLocation domain.Location
}

// RawScript is one wireit-stanza entry before validation, with byte
// locations preserved per field for diagnostics.
type RawScript struct {
	Name     string
	DeclLoc  domain.Location
	Command  *RawField[string]
	Deps     *RawArrayField
	Files    *RawArrayField
	Output   *RawArrayField
	Clean    *RawField[any]
	Locks    *RawArrayField
	Service  *RawField[bool]
}

// RawField is a single scalar field's value with its source location.
type RawField[T any] struct {
	Value T
	Loc   domain.Location
}

// RawArrayField is an array-valued field, with the array's own location and
// one location per element (so a bad element can be pointed at precisely).
type RawArrayField struct {
	Loc      domain.Location
	Elements []RawField[any]
}
