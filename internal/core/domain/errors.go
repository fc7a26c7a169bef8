package domain

import "go.trai.ch/zerr"

// Invalid config errors. The analyzer never returns these directly — it
// batches Diagnostics whose Message carries the sentinel's text, and tests
// identify the kind of problem by matching that text.
var (
	// ErrEmptyStringEntry is returned when a files/output/dependencies/
	// packageLocks entry is not a non-empty string after trim.
	ErrEmptyStringEntry = zerr.New("entry must be a non-empty string after trim")

	// ErrNotAnArray is returned when files/output/packageLocks/dependencies
	// is present but not a JSON array.
	ErrNotAnArray = zerr.New("field must be an array")

	// ErrNotAString is returned when an array entry is present but not a
	// JSON string.
	ErrNotAString = zerr.New("entry must be a string")

	// ErrInvalidCleanValue is returned when clean is not true, false, or
	// "if-file-deleted".
	ErrInvalidCleanValue = zerr.New(`clean must be true, false, or "if-file-deleted"`)

	// ErrDuplicateDependency is returned when a dependency list contains the
	// same dependency string twice, compared after trim.
	ErrDuplicateDependency = zerr.New("duplicate dependency")

	// ErrSelfDependency is returned when a cross-package dependency resolves
	// back to the referring package.
	ErrSelfDependency = zerr.New("cross-package dependency resolves to the referring package")

	// ErrPackageLockIsPath is returned when a packageLocks entry contains a
	// path separator.
	ErrPackageLockIsPath = zerr.New("packageLocks entry must be a filename, not a path")

	// ErrScriptNotWireit is returned when wireit declares a script whose
	// scripts[name] entry is not the sentinel string "wireit".
	ErrScriptNotWireit = zerr.New(`script is declared under wireit but its scripts entry is not "wireit"`)

	// ErrCommandOrDependency is returned when a script has neither a command
	// nor any dependencies.
	ErrCommandOrDependency = zerr.New("a script must have a command, dependencies, or both")

	// ErrWireitNotAMapping is returned when the top-level wireit key is not
	// a JSON object.
	ErrWireitNotAMapping = zerr.New("wireit must be a mapping of script name to script configuration")
)

// Launch errors.
var (
	// ErrLaunchedIncorrectly is returned when the runner lifecycle
	// environment variables do not match what the tool expects.
	ErrLaunchedIncorrectly = zerr.New("launched incorrectly: not invoked via the package-manager runner")

	// ErrManifestMissing is returned when a package manifest file cannot be
	// found.
	ErrManifestMissing = zerr.New("manifest file not found")

	// ErrManifestInvalidJSON is returned when a manifest's contents cannot
	// be parsed as JSON.
	ErrManifestInvalidJSON = zerr.New("manifest is not valid JSON")
)

// Graph errors.
var (
	// ErrScriptNotFound is returned when a dependency string does not
	// resolve to any declared script.
	ErrScriptNotFound = zerr.New("script not found")

	// ErrCycleDetected is returned when the analyzer's path stack revisits a
	// reference already on the stack.
	ErrCycleDetected = zerr.New("cycle detected")
)

// Execution errors.
var (
	// ErrSpawnFailed is returned when the supervisor's spawn syscall fails.
	ErrSpawnFailed = zerr.New("failed to spawn command")

	// ErrNonZeroExit is returned when a one-shot or service command exits
	// with a non-zero status.
	ErrNonZeroExit = zerr.New("script exited with a non-zero status")

	// ErrKilledBySignal is returned when a command is killed by a signal
	// not initiated by our own termination.
	ErrKilledBySignal = zerr.New("script was killed by a signal")

	// ErrTerminated is returned when a command's exit was the result of our
	// own supervisor.Terminate call.
	ErrTerminated = zerr.New("script was terminated")

	// ErrServiceExitedUnexpectedly is returned when a service's child exits
	// while it is in the started state, without a terminate request.
	ErrServiceExitedUnexpectedly = zerr.New("service exited unexpectedly")

	// ErrServiceTerminatedUnexpectedly is returned on a service execution
	// when one of its upstream services terminates while it is started.
	ErrServiceTerminatedUnexpectedly = zerr.New("an upstream service terminated unexpectedly")
)

// Dependency errors.
var (
	// ErrDependencyFailed is returned when an execution cannot proceed
	// because a dependency's execution failed.
	ErrDependencyFailed = zerr.New("a dependency failed")
)

// Cache and fingerprint errors.
var (
	// ErrCacheMiss is returned when a cacheable fingerprint has no entry in
	// the cache backend.
	ErrCacheMiss = zerr.New("cache miss")

	// ErrCacheWriteFailed is returned when a cache backend fails to persist
	// an entry.
	ErrCacheWriteFailed = zerr.New("failed to write cache entry")

	// ErrCacheReadFailed is returned when a cache backend fails to restore
	// an entry it reported as present.
	ErrCacheReadFailed = zerr.New("failed to read cache entry")

	// ErrFingerprintPersist is returned when the state file for a script
	// cannot be written after a successful run.
	ErrFingerprintPersist = zerr.New("failed to persist fingerprint state")

	// ErrOutputCleanFailed is returned when removing a declared output path
	// before running fails.
	ErrOutputCleanFailed = zerr.New("failed to clean declared output path")

	// ErrGlobExpandFailed is returned when a files/output/packageLocks glob
	// fails to expand.
	ErrGlobExpandFailed = zerr.New("failed to expand glob pattern")

	// ErrFileHashFailed is returned when hashing an input file fails.
	ErrFileHashFailed = zerr.New("failed to hash input file")
)
