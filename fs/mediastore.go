package fs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fwojciec/matrixctl"
)

// Ensure MediaStore implements matrixctl.MediaStore at compile time.
var _ matrixctl.MediaStore = (*MediaStore)(nil)

// MediaStore moves finished downloads from their temporary file to the
// destination the operator asked for. The temporary file may live on a
// different filesystem, so it is copied and then unlinked.
type MediaStore struct{}

// NewMediaStore creates a new MediaStore.
func NewMediaStore() *MediaStore {
	return &MediaStore{}
}

// FinalPath returns dest with ext appended when dest has no extension.
func FinalPath(dest, ext string) string {
	if filepath.Ext(dest) == "" && ext != "" {
		return dest + ext
	}
	return dest
}

// Commit copies the download to its final path and removes the temporary
// file.
func (s *MediaStore) Commit(dl *matrixctl.Download, dest string) (string, error) {
	final := FinalPath(dest, dl.Extension)

	if _, err := os.Stat(final); err == nil {
		return "", matrixctl.Errorf(matrixctl.EEXIST, "%s already exists, refusing to overwrite it", final)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", matrixctl.Errorf(matrixctl.EINTERNAL, "cannot inspect %s: %v", final, err)
	}

	if err := copyFile(dl.TempPath, final); err != nil {
		return "", err
	}
	if err := os.Remove(dl.TempPath); err != nil {
		return "", matrixctl.Errorf(matrixctl.EINTERNAL, "cannot remove temporary file %s: %v", dl.TempPath, err)
	}
	return final, nil
}

// Abort removes the temporary file.
func (s *MediaStore) Abort(dl *matrixctl.Download) error {
	if dl == nil || dl.TempPath == "" {
		return nil
	}
	if err := os.Remove(dl.TempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot open temporary file %s: %v", src, err)
	}
	defer in.Close()

	// O_EXCL closes the window between the existence check and the create.
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return matrixctl.Errorf(matrixctl.EEXIST, "%s already exists, refusing to overwrite it", dst)
	} else if err != nil {
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot create %s: %v", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot write %s: %v", dst, err)
	}
	if err := out.Close(); err != nil {
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot write %s: %v", dst, err)
	}
	return nil
}
