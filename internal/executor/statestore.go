package executor

import (
	"errors"
	"io/fs"
	"os"

	"github.com/wireit-go/wireit/internal/core/domain"
	"go.trai.ch/zerr"
)

// FileStateStore persists the last-successful-run fingerprint string for a
// script as a single plain-text file under its per-script state directory.
type FileStateStore struct{}

// NewFileStateStore constructs a FileStateStore.
func NewFileStateStore() *FileStateStore {
	return &FileStateStore{}
}

// Get returns the persisted fingerprint, or "" if none has ever been
// recorded for this script.
func (s *FileStateStore) Get(packageDir, name string) (string, error) {
	//nolint:gosec // path is derived from a trusted package directory and a hashed script name
	data, err := os.ReadFile(domain.StateFilePath(packageDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", zerr.Wrap(err, domain.ErrFingerprintPersist.Error())
	}
	return string(data), nil
}

// Put persists fingerprint as the last-successful-run fingerprint, replacing
// any prior value atomically.
func (s *FileStateStore) Put(packageDir, name, fingerprint string) error {
	dir := domain.ScriptStateDir(packageDir, name)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrFingerprintPersist.Error())
	}

	tmp, err := os.CreateTemp(dir, "state-*.tmp")
	if err != nil {
		return zerr.Wrap(err, domain.ErrFingerprintPersist.Error())
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.WriteString(fingerprint); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return zerr.Wrap(err, domain.ErrFingerprintPersist.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrFingerprintPersist.Error())
	}
	if err := os.Chmod(tmp.Name(), domain.PrivateFilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrFingerprintPersist.Error())
	}
	if err := os.Rename(tmp.Name(), domain.StateFilePath(packageDir, name)); err != nil {
		return zerr.Wrap(err, domain.ErrFingerprintPersist.Error())
	}
	return nil
}
