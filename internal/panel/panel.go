// Package panel is the state of one directory pane: listing, cursor,
// selection, sort order and navigation history.
package panel

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/sahilm/fuzzy"

	"github.com/kstost/cokacdir/internal/model"
)

const maxHistory = 100

// Panel is owned by the UI goroutine and is not safe for concurrent use.
type Panel struct {
	fs FS

	path      string
	entries   []model.DirectoryEntry
	cursor    int
	selected  map[string]bool
	sortKey   SortKey
	ascending bool
	history   []string
	err       error
}

// New returns an empty panel reading from fsys. Call Refresh to load a directory.
func New(fsys FS) *Panel {
	if fsys == nil {
		fsys = LocalFS{}
	}
	return &Panel{
		fs:        fsys,
		selected:  map[string]bool{},
		sortKey:   SortName,
		ascending: true,
	}
}

// FS returns the filesystem the panel reads from.
func (p *Panel) FS() FS { return p.fs }

// Path returns the directory shown by the panel.
func (p *Panel) Path() string { return p.path }

// Entries returns the listing in display order.
func (p *Panel) Entries() []model.DirectoryEntry { return p.entries }

// Cursor returns the cursor index, -1 when the listing is empty.
func (p *Panel) Cursor() int {
	if len(p.entries) == 0 {
		return -1
	}
	return p.cursor
}

// Err returns the error of the last failed refresh, cleared by the next
// successful one.
func (p *Panel) Err() error { return p.err }

// Sort returns the sort key and direction.
func (p *Panel) Sort() (SortKey, bool) { return p.sortKey, p.ascending }

// Refresh lists path. On failure the panel keeps its previous state.
func (p *Panel) Refresh(path string) error {
	focus := ""
	if abs, err := filepath.Abs(path); err == nil && abs == p.path {
		if cur, ok := p.Current(); ok {
			focus = cur.Name
		}
	}
	return p.load(path, focus)
}

// Reload lists the current directory again.
func (p *Panel) Reload() error { return p.Refresh(p.path) }

// Navigate enters a directory entry. Symlinks are resolved one level.
func (p *Panel) Navigate(e model.DirectoryEntry) error {
	if e.Parent {
		return p.Parent()
	}

	target := e.Path
	if e.Kind == model.EntryKindSymlink {
		link, err := p.fs.Readlink(e.Path)
		if err != nil {
			return p.fail(model.Classify(e.Path, err))
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(e.Path), link)
		}
		target = filepath.Clean(link)
	}

	fi, err := p.fs.Stat(target)
	if err != nil {
		return p.fail(model.Classify(target, err))
	}
	if !fi.IsDir() {
		return p.fail(model.NewPathError(model.ErrNotADirectory, e.Path, nil))
	}
	return p.enter(target, "")
}

// Parent goes up one directory and puts the cursor on the directory left.
func (p *Panel) Parent() error {
	if p.path == "" || p.path == string(filepath.Separator) {
		return nil
	}
	return p.enter(filepath.Dir(p.path), filepath.Base(p.path))
}

// Back returns to the previously visited directory.
func (p *Panel) Back() error {
	if len(p.history) == 0 {
		return nil
	}
	prev := p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]
	return p.load(prev, "")
}

// CanGoBack reports whether Back has somewhere to go.
func (p *Panel) CanGoBack() bool { return len(p.history) > 0 }

func (p *Panel) enter(path, focus string) error {
	prev := p.path
	if err := p.load(path, focus); err != nil {
		return err
	}
	if prev != "" && prev != p.path {
		p.history = append(p.history, prev)
		if len(p.history) > maxHistory {
			p.history = p.history[len(p.history)-maxHistory:]
		}
	}
	return nil
}

func (p *Panel) fail(err error) error {
	p.err = err
	return err
}

// load reads path and swaps the listing in. The cursor goes to the entry
// named focus when present, otherwise it keeps its index on the same
// directory and starts at the top of a new one.
func (p *Panel) load(path, focus string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return p.fail(model.NewPathError(model.ErrNotValid, path, err))
	}

	entries, err := p.list(abs)
	if err != nil {
		return p.fail(err)
	}
	sortEntries(entries, p.sortKey, p.ascending)

	sameDir := abs == p.path
	oldCursor := p.cursor

	p.path = abs
	p.entries = entries
	p.err = nil

	selected := map[string]bool{}
	if sameDir {
		for _, e := range entries {
			if p.selected[e.Path] {
				selected[e.Path] = true
			}
		}
	}
	p.selected = selected

	p.cursor = 0
	if sameDir {
		p.cursor = oldCursor
	}
	if i := p.indexOf(focus); i >= 0 {
		p.cursor = i
	}
	p.clamp()
	return nil
}

func (p *Panel) list(dir string) ([]model.DirectoryEntry, error) {
	fi, err := p.fs.Stat(dir)
	if err != nil {
		return nil, model.Classify(dir, err)
	}
	if !fi.IsDir() {
		return nil, model.NewPathError(model.ErrNotADirectory, dir, nil)
	}

	des, err := p.fs.ReadDir(dir)
	if err != nil {
		return nil, model.Classify(dir, err)
	}

	entries := make([]model.DirectoryEntry, 0, len(des)+1)
	if dir != string(filepath.Separator) {
		entries = append(entries, model.DirectoryEntry{
			Path:   filepath.Dir(dir),
			Name:   model.ParentName,
			Kind:   model.EntryKindDir,
			Mode:   fi.Mode(),
			Parent: true,
		})
	}

	for _, de := range des {
		path := filepath.Join(dir, de.Name())
		info, err := de.Info()
		if err != nil {
			// Vanished between ReadDir and Lstat.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, model.Classify(path, err)
		}

		e := model.DirectoryEntry{
			Path:    path,
			Name:    de.Name(),
			Kind:    model.EntryKindFile,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		}
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			e.Kind = model.EntryKindSymlink
			if target, err := p.fs.Stat(path); err == nil && target.IsDir() {
				e.LinkToDir = true
			}
		case info.IsDir():
			e.Kind = model.EntryKindDir
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Current returns the entry under the cursor.
func (p *Panel) Current() (model.DirectoryEntry, bool) {
	if len(p.entries) == 0 {
		return model.DirectoryEntry{}, false
	}
	return p.entries[p.cursor], true
}

// MoveCursor moves the cursor by delta rows, clamped to the listing.
func (p *Panel) MoveCursor(delta int) {
	p.cursor += delta
	p.clamp()
}

// PageUp moves the cursor one page up.
func (p *Panel) PageUp(pageSize int) { p.MoveCursor(-max(pageSize, 1)) }

// PageDown moves the cursor one page down.
func (p *Panel) PageDown(pageSize int) { p.MoveCursor(max(pageSize, 1)) }

// Home moves the cursor to the first entry.
func (p *Panel) Home() { p.cursor = 0 }

// End moves the cursor to the last entry.
func (p *Panel) End() {
	p.cursor = len(p.entries) - 1
	p.clamp()
}

func (p *Panel) clamp() {
	if p.cursor >= len(p.entries) {
		p.cursor = len(p.entries) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p *Panel) indexOf(name string) int {
	if name == "" {
		return -1
	}
	for i, e := range p.entries {
		if e.Name == name && !e.Parent {
			return i
		}
	}
	return -1
}

// SetSort sorts by key. The current key flips the direction, a new key
// starts ascending. The cursor stays on the same entry.
func (p *Panel) SetSort(key SortKey) {
	if key == p.sortKey {
		p.ascending = !p.ascending
	} else {
		p.sortKey = key
		p.ascending = true
	}

	cur, ok := p.Current()
	sortEntries(p.entries, p.sortKey, p.ascending)
	if ok {
		for i, e := range p.entries {
			if e.Path == cur.Path && e.Parent == cur.Parent {
				p.cursor = i
				break
			}
		}
	}
}

// Jump moves the cursor to the entry best matching query. It returns false
// when nothing matches.
func (p *Panel) Jump(query string) bool {
	if query == "" {
		return false
	}
	names := make([]string, 0, len(p.entries))
	index := make([]int, 0, len(p.entries))
	for i, e := range p.entries {
		if e.Parent {
			continue
		}
		names = append(names, e.Name)
		index = append(index, i)
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return false
	}
	p.cursor = index[matches[0].Index]
	return true
}
