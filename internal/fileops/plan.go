package fileops

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/task"
)

const preflightConcurrency = 4

// Absolute symlink targets that are never recreated by a copy.
var sensitiveLinkTargets = []string{"/etc", "/sys", "/proc", "/boot", "/root", "/var/log"}

// item is one filesystem object of a pre-flight walk.
type item struct {
	src     string
	dst     string
	kind    model.EntryKind
	size    int64
	mode    fs.FileMode
	modTime time.Time
	link    string
}

func (it item) countable() bool { return it.kind != model.EntryKindDir }

// tree is the pre-order listing of one source.
type tree struct {
	root  string
	dst   string
	items []item
	files int
	bytes int64
}

type walkOptions struct {
	// special allows devices, fifos and sockets (only deletable, not copyable).
	special bool
	// links rejects symlinks that point into sensitive system paths.
	links bool
}

// preflight walks every source before anything is mutated. Sources are
// walked concurrently but the result keeps the submission order, and each
// tree is listed in a stable pre-order. The first failing source stops the
// other walks.
func preflight(tok *task.Token, sources []string, dstDir string, opts walkOptions) ([]tree, error) {
	trees := make([]tree, len(sources))

	g, ctx := errgroup.WithContext(tok.Context())
	g.SetLimit(preflightConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			dst := ""
			if dstDir != "" {
				dst = filepath.Join(dstDir, filepath.Base(src))
			}
			t := tree{root: src, dst: dst}
			fi, err := os.Lstat(src)
			if err != nil {
				return model.Classify(src, err)
			}
			if err := walk(ctx, &t, src, dst, fi, opts); err != nil {
				return err
			}
			trees[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}

func walk(ctx context.Context, t *tree, src, dst string, fi fs.FileInfo, opts walkOptions) error {
	if ctx.Err() != nil {
		return model.ErrCancelled
	}

	it := item{src: src, dst: dst, size: fi.Size(), mode: fi.Mode(), modTime: fi.ModTime()}
	switch {
	case fi.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return model.Classify(src, err)
		}
		if opts.links && sensitiveLinkTarget(target) {
			return model.NewPathError(model.ErrProtected, src, fmt.Errorf("symlink points to %s", target))
		}
		it.kind = model.EntryKindSymlink
		it.link = target
		it.size = 0
	case fi.IsDir():
		it.kind = model.EntryKindDir
		it.size = 0
		t.items = append(t.items, it)

		entries, err := os.ReadDir(src)
		if err != nil {
			return model.Classify(src, err)
		}
		for _, de := range entries {
			info, err := de.Info()
			if err != nil {
				return model.Classify(filepath.Join(src, de.Name()), err)
			}
			childDst := ""
			if dst != "" {
				childDst = filepath.Join(dst, de.Name())
			}
			if err := walk(ctx, t, filepath.Join(src, de.Name()), childDst, info, opts); err != nil {
				return err
			}
		}
		return nil
	case fi.Mode().IsRegular():
		it.kind = model.EntryKindFile
	default:
		if !opts.special {
			return model.NewPathError(model.ErrNotValid, src, fmt.Errorf("unsupported file type %s", fi.Mode().Type()))
		}
		it.kind = model.EntryKindFile
		it.size = 0
	}

	t.items = append(t.items, it)
	t.files++
	t.bytes += it.size
	return nil
}

func totals(trees []tree) (files int, bytes int64) {
	for _, t := range trees {
		files += t.files
		bytes += t.bytes
	}
	return files, bytes
}

func sensitiveLinkTarget(target string) bool {
	if !filepath.IsAbs(target) {
		return false
	}
	target = filepath.Clean(target)
	for _, s := range sensitiveLinkTargets {
		if target == s || strings.HasPrefix(target, s+"/") {
			return true
		}
	}
	return false
}

// isWithin reports whether path is parent itself or lives under it.
func isWithin(path, parent string) bool {
	return path == parent || strings.HasPrefix(path, parent+string(filepath.Separator))
}
