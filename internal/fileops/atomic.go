package fileops

import (
	"errors"
	"io/fs"
	"os"

	"github.com/moby/sys/atomicwriter"

	"github.com/kstost/cokacdir/internal/model"
)

// WriteFileAtomic replaces the content of path in a single rename, keeping
// its permission bits. New files get 0644.
func WriteFileAtomic(path string, data []byte) error {
	perm := fs.FileMode(0o644)
	fi, err := os.Stat(path)
	switch {
	case err == nil:
		if fi.IsDir() {
			return model.NewPathError(model.ErrNotValid, path, errors.New("is a directory"))
		}
		perm = fi.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return model.Classify(path, err)
	}

	if err := atomicwriter.WriteFile(path, data, perm); err != nil {
		return model.Classify(path, err)
	}
	return nil
}
