package domain

import (
	"encoding/hex"
	"path/filepath"
)

const (
	// StateDirName is the name of the per-package state directory.
	StateDirName = ".wireit"

	// CacheDirName is the name of the local cache blob directory within a
	// script's state directory.
	CacheDirName = "cache"

	// StateFileName holds the canonical fingerprint string of the last
	// successful run.
	StateFileName = "state"

	// StdoutFileName and StderrFileName hold the last run's captured
	// streams.
	StdoutFileName = "stdout"
	StderrFileName = "stderr"

	// DirPerm is the default permission for state directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for captured output files
	// (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for state files that should
	// not be group-readable (rw-------).
	PrivateFilePerm = 0o600
)

// ScriptStateDir returns the per-script state directory,
// <packageDir>/.wireit/<hex(name)>/.
func ScriptStateDir(packageDir, name string) string {
	return filepath.Join(packageDir, StateDirName, hex.EncodeToString([]byte(name)))
}

// StateFilePath returns the path to the persisted fingerprint state file for
// a script.
func StateFilePath(packageDir, name string) string {
	return filepath.Join(ScriptStateDir(packageDir, name), StateFileName)
}

// StdoutFilePath returns the path to the captured stdout file for a script.
func StdoutFilePath(packageDir, name string) string {
	return filepath.Join(ScriptStateDir(packageDir, name), StdoutFileName)
}

// StderrFilePath returns the path to the captured stderr file for a script.
func StderrFilePath(packageDir, name string) string {
	return filepath.Join(ScriptStateDir(packageDir, name), StderrFileName)
}

// CacheDir returns the local cache blob directory for a script.
func CacheDir(packageDir, name string) string {
	return filepath.Join(ScriptStateDir(packageDir, name), CacheDirName)
}
