package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/kstost/cokacdir/internal/model"
)

const maxFilenameBytes = 255

// System paths a delete task refuses to touch, whatever the symlinks in
// between.
var protectedPaths = map[string]bool{
	"/": true, "/bin": true, "/boot": true, "/dev": true, "/etc": true,
	"/home": true, "/lib": true, "/lib64": true, "/opt": true, "/proc": true,
	"/root": true, "/sbin": true, "/sys": true, "/tmp": true, "/usr": true,
	"/var": true,
}

func (w *worker) delete() error {
	for _, src := range w.h.req.Sources {
		if isProtected(src) {
			return model.NewPathError(model.ErrProtected, src, errors.New("refusing to delete a system path"))
		}
	}

	trees, err := preflight(w.h.token, w.h.req.Sources, "", walkOptions{special: true})
	if err != nil {
		return err
	}
	files, bytes := totals(trees)
	w.h.tracker.SetTotals(files, bytes)

	for _, t := range trees {
		for i := len(t.items) - 1; i >= 0; i-- {
			it := t.items[i]
			if err := w.next(it.src); err != nil {
				return err
			}
			if err := os.Remove(it.src); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return model.Classify(it.src, err)
			}
			if it.countable() {
				w.h.tracker.Advance(1, it.size)
			}
		}
	}
	return nil
}

func (w *worker) renameOne() error {
	src, dst := w.h.req.Sources[0], w.h.req.Destination
	if err := ValidateFilename(filepath.Base(dst)); err != nil {
		return err
	}
	w.h.tracker.SetTotals(1, 0)

	if err := w.next(src); err != nil {
		return err
	}
	if _, err := os.Lstat(src); err != nil {
		return model.Classify(src, err)
	}
	if src == dst {
		return model.NewPathError(model.ErrNotValid, src, errors.New("new name is the same"))
	}
	if _, err := os.Lstat(dst); err == nil {
		return model.NewPathError(model.ErrAlreadyExists, dst, nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return model.Classify(dst, err)
	}

	if err := w.engine.rename(src, dst); err != nil {
		return model.Classify(src, err)
	}
	w.h.tracker.Advance(1, 0)
	return nil
}

func (w *worker) mkdir() error {
	dst := w.h.req.Destination
	if err := ValidateFilename(filepath.Base(dst)); err != nil {
		return err
	}
	w.h.tracker.SetTotals(1, 0)

	if err := w.next(dst); err != nil {
		return err
	}
	if err := os.Mkdir(dst, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return model.NewPathError(model.ErrAlreadyExists, dst, nil)
		}
		return model.Classify(dst, err)
	}
	w.h.tracker.Advance(1, 0)
	return nil
}

// ValidateFilename checks a single path component typed by the user.
func ValidateFilename(name string) error {
	invalid := func(reason string) error {
		return model.NewPathError(model.ErrNotValid, name, errors.New(reason))
	}

	switch {
	case name == "":
		return invalid("name is empty")
	case name == "." || name == "..":
		return invalid("name is reserved")
	case len(name) > maxFilenameBytes:
		return invalid(fmt.Sprintf("name is longer than %d bytes", maxFilenameBytes))
	case strings.ContainsAny(name, `/\`):
		return invalid("name contains a path separator")
	case strings.TrimSpace(name) != name:
		return invalid("name starts or ends with whitespace")
	case strings.HasPrefix(name, "-"):
		return invalid("name starts with '-'")
	}
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return invalid("name contains control characters")
		}
	}
	return nil
}

func isProtected(path string) bool {
	path = filepath.Clean(path)
	if protectedPaths[path] {
		return true
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	// A symlink to a protected directory is only a link, deleting it is fine.
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
		return false
	}
	return protectedPaths[resolved]
}
