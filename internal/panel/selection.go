package panel

import "github.com/kstost/cokacdir/internal/model"

// ToggleSelect flips the selection of e and returns its new state. The
// parent entry and entries outside the listing are never selected.
func (p *Panel) ToggleSelect(e model.DirectoryEntry) bool {
	if e.Parent || !p.listed(e.Path) {
		return false
	}
	if p.selected[e.Path] {
		delete(p.selected, e.Path)
		return false
	}
	p.selected[e.Path] = true
	return true
}

// SelectAll selects every entry, or clears the selection when everything
// is already selected.
func (p *Panel) SelectAll() {
	all := true
	for _, e := range p.entries {
		if !e.Parent && !p.selected[e.Path] {
			all = false
			break
		}
	}
	if all {
		p.ClearSelection()
		return
	}
	for _, e := range p.entries {
		if !e.Parent {
			p.selected[e.Path] = true
		}
	}
}

// ClearSelection drops every selection.
func (p *Panel) ClearSelection() { p.selected = map[string]bool{} }

// IsSelected reports whether path is selected.
func (p *Panel) IsSelected(path string) bool { return p.selected[path] }

// Selected returns the selected entries in listing order.
func (p *Panel) Selected() []model.DirectoryEntry {
	var out []model.DirectoryEntry
	for _, e := range p.entries {
		if p.selected[e.Path] && !e.Parent {
			out = append(out, e)
		}
	}
	return out
}

// Targets returns what an operation acts on: the selection, or the entry
// under the cursor when nothing is selected.
func (p *Panel) Targets() []model.DirectoryEntry {
	if sel := p.Selected(); len(sel) > 0 {
		return sel
	}
	if cur, ok := p.Current(); ok && !cur.Parent {
		return []model.DirectoryEntry{cur}
	}
	return nil
}

func (p *Panel) listed(path string) bool {
	for _, e := range p.entries {
		if e.Path == path && !e.Parent {
			return true
		}
	}
	return false
}
