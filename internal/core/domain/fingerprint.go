package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Fingerprint is the canonical, content-addressed identity of a script's
// meaningful inputs at a point in time: platform, command, options, hashed
// input files, and the fingerprints of its dependencies.
type Fingerprint struct {
	Platform     string            `json:"platform"`
	Arch         string            `json:"arch"`
	Interpreter  string            `json:"interpreter"`
	Command      string            `json:"command"`
	Clean        string            `json:"clean"`
	Files        map[string]string `json:"files"`        // relativePath -> sha256hex
	Output       []string          `json:"output"`
	Dependencies map[string]string `json:"dependencies"` // depRefString -> canonical fingerprint string

	cacheable bool
	serial    string
}

// cleanString renders a CleanPolicy the way Fingerprint serializes it.
func cleanString(c CleanPolicy) string {
	switch c {
	case CleanAlways:
		return "true"
	case CleanIfFileDeleted:
		return "if-file-deleted"
	default:
		return "false"
	}
}

// NewFingerprint assembles and serializes a Fingerprint. files maps relative
// input paths to their sha256 hex digests; dependencies maps each
// dependency's reference string to its own canonical fingerprint string.
// cacheable must already reflect the rule in IsCacheable.
func NewFingerprint(platform, arch, interpreter, command string, clean CleanPolicy, files map[string]string, output []string, dependencies map[string]string, cacheable bool) Fingerprint {
	fp := Fingerprint{
		Platform:     platform,
		Arch:         arch,
		Interpreter:  interpreter,
		Command:      command,
		Clean:        cleanString(clean),
		Files:        files,
		Output:       append([]string(nil), output...),
		Dependencies: dependencies,
		cacheable:    cacheable,
	}
	sort.Strings(fp.Output)
	fp.serial = fp.canonicalize()
	return fp
}

// canonicalize produces the fixed-field, key-sorted JSON serialization that
// is the fingerprint's identity. encoding/json already sorts map keys when
// marshaling a map[string]string, which gives the spec's "inner maps sorted
// by key lexicographically" for free; field order is fixed by struct
// declaration order.
func (f Fingerprint) canonicalize() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	type canonical struct {
		Platform     string            `json:"platform"`
		Arch         string            `json:"arch"`
		Interpreter  string            `json:"interpreter"`
		Command      string            `json:"command"`
		Clean        string            `json:"clean"`
		Files        map[string]string `json:"files"`
		Output       []string          `json:"output"`
		Dependencies map[string]string `json:"dependencies"`
	}
	_ = enc.Encode(canonical{
		Platform:     f.Platform,
		Arch:         f.Arch,
		Interpreter:  f.Interpreter,
		Command:      f.Command,
		Clean:        f.Clean,
		Files:        f.Files,
		Output:       f.Output,
		Dependencies: f.Dependencies,
	})
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// String returns the canonical serialization; this is the fingerprint's
// equality identity.
func (f Fingerprint) String() string {
	return f.serial
}

// Cacheable reports whether this fingerprint may be persisted to or
// restored from a cache backend.
func (f Fingerprint) Cacheable() bool {
	return f.cacheable
}

// Equal reports string equality of the canonical serialization.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.serial == other.serial
}

// IsCacheable derives the cacheable flag: true iff the script has no
// command, or it declares files and every dependency's fingerprint is
// cacheable.
func IsCacheable(hasCommand, declaresFiles bool, depFingerprints []Fingerprint) bool {
	if !hasCommand {
		return true
	}
	if !declaresFiles {
		return false
	}
	for _, dep := range depFingerprints {
		if !dep.Cacheable() {
			return false
		}
	}
	return true
}
