package fileops

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/kstost/cokacdir/internal/model"
)

const copyBufferSize = 64 * 1024

type worker struct {
	engine *Engine
	h      *Handle
}

// next runs the per-item hook and the cancellation check, the only point
// where a worker stops early.
func (w *worker) next(path string) error {
	w.engine.itemHook(w.h.id, path)
	if w.h.token.Cancelled() {
		return model.ErrCancelled
	}
	w.h.tracker.Start(path)
	return nil
}

func (w *worker) copy() error {
	trees, err := w.prepareTransfer()
	if err != nil {
		return err
	}
	for _, t := range trees {
		if _, err := w.copyTree(t); err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) move() error {
	trees, err := w.prepareTransfer()
	if err != nil {
		return err
	}

	for _, t := range trees {
		if err := w.next(t.root); err != nil {
			return err
		}

		_, err := os.Lstat(t.dst)
		exists := err == nil
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return model.Classify(t.dst, err)
		}

		if !exists {
			err := w.engine.rename(t.root, t.dst)
			if err == nil {
				w.h.tracker.Advance(t.files, t.bytes)
				continue
			}
			if !errors.Is(err, unix.EXDEV) {
				return model.Classify(t.root, err)
			}
			w.engine.logger.Debugf("Cross-device move of %s, falling back to copy", t.root)
		}

		// Merging into an existing destination or crossing filesystems.
		copied, err := w.copyTree(t)
		if err != nil {
			return err
		}
		if err := w.removeCopied(t, copied); err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) prepareTransfer() ([]tree, error) {
	req := w.h.req

	fi, err := os.Stat(req.Destination)
	if err != nil {
		return nil, model.Classify(req.Destination, err)
	}
	if !fi.IsDir() {
		return nil, model.NewPathError(model.ErrNotADirectory, req.Destination, nil)
	}

	for _, src := range req.Sources {
		dst := filepath.Join(req.Destination, filepath.Base(src))
		if dst == src {
			return nil, model.NewPathError(model.ErrNotValid, src, errors.New("source and destination are the same"))
		}
		if isWithin(req.Destination, src) {
			return nil, model.NewPathError(model.ErrNotValid, src, errors.New("cannot copy a directory into itself"))
		}
	}

	trees, err := preflight(w.h.token, req.Sources, req.Destination, walkOptions{links: true})
	if err != nil {
		return nil, err
	}
	files, bytes := totals(trees)
	w.h.tracker.SetTotals(files, bytes)
	return trees, nil
}

// copyTree copies one source tree in pre-order. The returned slice marks the
// items that now exist at the destination because of this task.
func (w *worker) copyTree(t tree) (copied []bool, err error) {
	policy := w.h.req.Policy
	copied = make([]bool, len(t.items))
	var dirs []item
	skipUnder := ""

	// Directories are kept writable while filling them, their real mode and
	// mtime are applied on the way out, children first.
	defer func() {
		if ferr := finishDirs(dirs); err == nil {
			err = ferr
		}
	}()

	for i, it := range t.items {
		if skipUnder != "" && isWithin(it.dst, skipUnder) {
			if it.countable() {
				w.h.tracker.Skip(1, it.size)
			}
			continue
		}
		skipUnder = ""

		if err := w.next(it.src); err != nil {
			return copied, err
		}

		switch it.kind {
		case model.EntryKindDir:
			skip, err := makeDir(it, policy)
			if err != nil {
				return copied, err
			}
			if skip {
				skipUnder = it.dst
				continue
			}
			dirs = append(dirs, it)
			copied[i] = true
		case model.EntryKindSymlink:
			skip, err := resolveConflict(it.dst, policy)
			if err != nil {
				return copied, err
			}
			if skip {
				w.h.tracker.Skip(1, 0)
				continue
			}
			if err := os.Symlink(it.link, it.dst); err != nil {
				return copied, model.Classify(it.dst, err)
			}
			copied[i] = true
			w.h.tracker.Advance(1, 0)
		default:
			skip, err := resolveConflict(it.dst, policy)
			if err != nil {
				return copied, err
			}
			if skip {
				w.h.tracker.Skip(1, it.size)
				continue
			}
			if err := copyFile(it); err != nil {
				return copied, err
			}
			copied[i] = true
			w.h.tracker.Advance(1, it.size)
		}
	}

	return copied, nil
}

func finishDirs(dirs []item) error {
	var first error
	for i := len(dirs) - 1; i >= 0; i-- {
		it := dirs[i]
		if err := os.Chmod(it.dst, it.mode.Perm()); err != nil {
			first = cmp.Or(first, model.Classify(it.dst, err))
			continue
		}
		if err := os.Chtimes(it.dst, it.modTime, it.modTime); err != nil {
			first = cmp.Or(first, model.Classify(it.dst, err))
		}
	}
	return first
}

// removeCopied deletes the source side of a copied tree, children first.
// Anything left out by the conflict policy stays where it is.
func (w *worker) removeCopied(t tree, copied []bool) error {
	for i := len(t.items) - 1; i >= 0; i-- {
		if !copied[i] {
			continue
		}
		it := t.items[i]
		err := os.Remove(it.src)
		if err == nil {
			continue
		}
		if it.kind == model.EntryKindDir && (errors.Is(err, unix.ENOTEMPTY) || errors.Is(err, fs.ErrExist)) {
			continue
		}
		return model.Classify(it.src, fmt.Errorf("copied but could not remove source: %w", err))
	}
	return nil
}

// makeDir creates the destination directory of it, or opens an existing
// one up for merging. skip is true when the whole subtree has to be left
// out.
func makeDir(it item, policy model.ConflictPolicy) (skip bool, err error) {
	fi, err := os.Lstat(it.dst)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return false, model.Classify(it.dst, err)
	case policy == model.ConflictFailFast:
		return false, model.NewPathError(model.ErrAlreadyExists, it.dst, nil)
	case fi.IsDir():
		if perm := fi.Mode().Perm(); perm&0o700 != 0o700 {
			if err := os.Chmod(it.dst, perm|0o700); err != nil {
				return false, model.Classify(it.dst, err)
			}
		}
		return false, nil
	case policy == model.ConflictSkip:
		return true, nil
	default:
		if err := os.Remove(it.dst); err != nil {
			return false, model.Classify(it.dst, err)
		}
	}

	if err := os.Mkdir(it.dst, it.mode.Perm()|0o700); err != nil {
		return false, model.Classify(it.dst, err)
	}
	return false, nil
}

// resolveConflict applies the task policy to a non-directory destination.
func resolveConflict(dst string, policy model.ConflictPolicy) (skip bool, err error) {
	fi, err := os.Lstat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, model.Classify(dst, err)
	}

	switch policy {
	case model.ConflictSkip:
		return true, nil
	case model.ConflictOverwrite:
		if fi.IsDir() {
			return false, model.NewPathError(model.ErrAlreadyExists, dst, errors.New("cannot overwrite a directory with a file"))
		}
		if err := os.Remove(dst); err != nil {
			return false, model.Classify(dst, err)
		}
		return false, nil
	default:
		return false, model.NewPathError(model.ErrAlreadyExists, dst, nil)
	}
}

// copyFile copies a regular file keeping its permission bits and mtime. A
// failed write leaves the partial file in place.
func copyFile(it item) error {
	in, err := os.Open(it.src)
	if err != nil {
		return model.Classify(it.src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(it.dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, it.mode.Perm()|0o200)
	if err != nil {
		return model.Classify(it.dst, err)
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		return model.Classify(it.dst, err)
	}
	if err := out.Close(); err != nil {
		return model.Classify(it.dst, err)
	}

	if err := os.Chmod(it.dst, it.mode.Perm()); err != nil {
		return model.Classify(it.dst, err)
	}
	if err := os.Chtimes(it.dst, it.modTime, it.modTime); err != nil {
		return model.Classify(it.dst, err)
	}
	return nil
}
