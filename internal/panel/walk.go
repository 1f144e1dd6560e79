package panel

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/kstost/cokacdir/internal/model"
)

// MaxSearchResults caps a recursive name search.
const MaxSearchResults = 1000

var (
	errNoEntry   = errors.New("no entry under the cursor")
	errEmptyTerm = errors.New("empty search term")
	errLimit     = errors.New("search limit reached")
)

// Goto opens path, or the nearest ancestor of it that can be listed, and
// returns the directory actually opened. When nothing on the way up can be
// listed the panel keeps its state.
func (p *Panel) Goto(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", p.fail(model.NewPathError(model.ErrNotValid, path, err))
	}

	var first error
	for dir := abs; ; dir = filepath.Dir(dir) {
		err := p.enter(dir, "")
		if err == nil {
			return p.path, nil
		}
		if first == nil {
			first = err
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}
	return "", p.fail(first)
}

// Reveal shows e: directories are entered, anything else is focused in its
// parent directory.
func (p *Panel) Reveal(e model.DirectoryEntry) error {
	if e.IsDir() {
		return p.enter(e.Path, "")
	}
	return p.enter(filepath.Dir(e.Path), filepath.Base(e.Path))
}

// Info describes the entry under the cursor.
func (p *Panel) Info() (model.DirectoryEntry, error) {
	cur, ok := p.Current()
	if !ok || cur.Parent {
		return cur, model.NewPathError(model.ErrNotValid, p.path, errNoEntry)
	}
	return cur, nil
}

// DirUsage adds up everything under dir. Subdirectories that cannot be
// listed are counted and skipped.
func DirUsage(ctx context.Context, fsys FS, dir string) (model.DirUsage, error) {
	var u model.DirUsage
	des, err := fsys.ReadDir(dir)
	if err != nil {
		return u, model.Classify(dir, err)
	}
	err = usage(ctx, fsys, dir, des, &u)
	return u, err
}

func usage(ctx context.Context, fsys FS, dir string, des []fs.DirEntry, u *model.DirUsage) error {
	if ctx.Err() != nil {
		return model.ErrCancelled
	}
	for _, de := range des {
		path := filepath.Join(dir, de.Name())
		if de.IsDir() {
			u.Dirs++
			children, err := fsys.ReadDir(path)
			if err != nil {
				u.Unreadable++
				continue
			}
			if err := usage(ctx, fsys, path, children, u); err != nil {
				return err
			}
			continue
		}
		u.Files++
		if de.Type().IsRegular() {
			if info, err := de.Info(); err == nil {
				u.Bytes += info.Size()
			}
		}
	}
	return nil
}

// Search lists entries under root whose name contains term, ignoring case.
// The walk does not follow symlinks and stops after limit matches.
func Search(ctx context.Context, fsys FS, root, term string, limit int) (model.SearchResult, error) {
	res := model.SearchResult{Root: root, Term: term}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return res, model.NewPathError(model.ErrNotValid, root, errEmptyTerm)
	}
	if limit <= 0 {
		limit = MaxSearchResults
	}

	des, err := fsys.ReadDir(root)
	if err != nil {
		return res, model.Classify(root, err)
	}
	err = search(ctx, fsys, root, "", des, term, limit, &res)
	if err == errLimit {
		res.Truncated = true
		err = nil
	}
	return res, err
}

func search(ctx context.Context, fsys FS, dir, rel string, des []fs.DirEntry, term string, limit int, res *model.SearchResult) error {
	if ctx.Err() != nil {
		return model.ErrCancelled
	}
	for _, de := range des {
		path := filepath.Join(dir, de.Name())
		name := filepath.Join(rel, de.Name())
		if strings.Contains(strings.ToLower(de.Name()), term) {
			if len(res.Matches) == limit {
				return errLimit
			}
			e := model.DirectoryEntry{Path: path, Name: name, Kind: model.EntryKindFile}
			switch {
			case de.Type()&fs.ModeSymlink != 0:
				e.Kind = model.EntryKindSymlink
			case de.IsDir():
				e.Kind = model.EntryKindDir
			}
			if info, err := de.Info(); err == nil {
				e.Size = info.Size()
				e.ModTime = info.ModTime()
				e.Mode = info.Mode()
			}
			res.Matches = append(res.Matches, e)
		}
		if !de.IsDir() {
			continue
		}
		children, err := fsys.ReadDir(path)
		if err != nil {
			continue
		}
		if err := search(ctx, fsys, path, name, children, term, limit, res); err != nil {
			return err
		}
	}
	return nil
}
