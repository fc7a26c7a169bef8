// Package domain contains the core types shared across the script runner:
// script identity, configuration, fingerprints, and diagnostics.
package domain

import "fmt"

// ScriptKind distinguishes the three execution variants a ScriptConfig can take.
type ScriptKind uint8

const (
	// NoCommand scripts have only dependencies; they never spawn a process.
	NoCommand ScriptKind = iota
	// OneShot scripts run to completion and may be skipped when fresh or
	// restored from the cache.
	OneShot
	// Service scripts run indefinitely and are never fingerprint-skipped or
	// cache-restored.
	Service
)

// String renders the kind for diagnostics and logs.
func (k ScriptKind) String() string {
	switch k {
	case NoCommand:
		return "no-command"
	case OneShot:
		return "one-shot"
	case Service:
		return "service"
	default:
		return "unknown"
	}
}

// CleanPolicy controls whether declared outputs are removed before a
// one-shot script runs.
type CleanPolicy uint8

const (
	// CleanNever never removes outputs before running.
	CleanNever CleanPolicy = iota
	// CleanAlways always removes outputs before running.
	CleanAlways
	// CleanIfFileDeleted removes outputs only when the input file set has
	// shrunk since the last run.
	CleanIfFileDeleted
)

// ScriptReference identifies a script by the directory of the manifest that
// declares it and the script's name within that manifest. Both fields are
// interned: a graph with many cross-package edges repeats the same package
// directory and script name strings across every dependency edge.
type ScriptReference struct {
	PackageDir InternedString
	Name       InternedString
}

// NewScriptReference interns packageDir and name into a ScriptReference.
func NewScriptReference(packageDir, name string) ScriptReference {
	return ScriptReference{
		PackageDir: NewInternedString(packageDir),
		Name:       NewInternedString(name),
	}
}

// Key returns the canonical map-key string for this reference.
func (r ScriptReference) Key() string {
	return r.PackageDir.String() + "\x00" + r.Name.String()
}

// String renders the reference as "packageDir:name" with the package
// directory as stored. Diagnostic labels relative to the root package come
// from Label instead.
func (r ScriptReference) String() string {
	return fmt.Sprintf("%s:%s", r.PackageDir, r.Name)
}

// Label renders the reference as bare name if declared in rootDir, else
// "relative/path:name".
func (r ScriptReference) Label(rootDir string) string {
	return labelFor(rootDir, r)
}

// DependencyEdge is one declared dependency of a ScriptConfig, carrying the
// resolved child and the textual location of the declaration for
// diagnostics.
type DependencyEdge struct {
	Child    *ScriptConfig
	RawValue string // the dependency string exactly as declared
	Location Location
}

// ScriptConfig is the resolved, validated configuration for one script. It
// behaves as a sum type over Kind: NoCommand configs carry no Command; both
// OneShot and Service configs do.
type ScriptConfig struct {
	Reference ScriptReference
	Kind      ScriptKind

	Command string // shell command text; empty for NoCommand

	// OneShot-only fields.
	Files        []string // input globs, relative to PackageDir
	Output       []string // output globs, relative to PackageDir
	Clean        CleanPolicy
	PackageLocks []string // lockfile names included in the fingerprint

	Dependencies        []DependencyEdge
	ReverseDependencies []*ScriptConfig

	// DeclLocation is where this script's wireit stanza was declared, used
	// as the primary location for config diagnostics that aren't specific
	// to one field.
	DeclLocation Location
}

// Label renders the script the way the Analyzer's diagnostics do: bare name
// if declared in rootDir, else "relative/path:name".
func (s *ScriptConfig) Label(rootDir string) string {
	return labelFor(rootDir, s.Reference)
}

func labelFor(rootDir string, ref ScriptReference) string {
	pkgDir := ref.PackageDir.String()
	name := ref.Name.String()
	if pkgDir == rootDir {
		return name
	}
	rel := relPath(rootDir, pkgDir)
	return rel + ":" + name
}
