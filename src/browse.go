package src

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

func (m *Model) openInfo() {
	ctx, cancel := context.WithCancel(m.ctx)
	e, usage, err := m.session.Info(ctx)
	if err != nil {
		cancel()
		m.report(err)
		return
	}
	m.info = e
	m.usage = usage
	m.infoCancel = cancel
	m.mode = infoMode
}

func (m *Model) closeInfo() {
	if m.infoCancel != nil {
		m.infoCancel()
		m.infoCancel = nil
	}
	m.usage = nil
	m.mode = explorerMode
}

// updateInfo closes the info box on any key.
func (m Model) updateInfo(tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.closeInfo()
	return m, nil
}

func (m Model) infoView() string {
	e := m.info
	row := func(label, value string) string {
		return subtitleStyle.Render(fmt.Sprintf("%-10s", label)) + " " + value
	}
	lines := []string{
		titleStyle.Render("File information"),
		row("Name", e.Name),
		row("Path", e.Path),
		row("Type", e.Kind.String()),
		row("Mode", e.Mode.String()),
		row("Modified", e.ModTime.Format("2006-01-02 15:04:05")),
	}

	switch {
	case m.usage == nil:
		lines = append(lines, row("Size", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(uint64(e.Size)), e.Size)))
	default:
		u, ok, err := m.usage.Poll()
		switch {
		case !ok:
			lines = append(lines, row("Size", "calculating..."))
		case err != nil:
			lines = append(lines, row("Size", errorStyle.Render(err.Error())))
		default:
			size := fmt.Sprintf("%s in %d files, %d directories", humanize.IBytes(uint64(u.Bytes)), u.Files, u.Dirs)
			if u.Unreadable > 0 {
				size += fmt.Sprintf(", %d unreadable", u.Unreadable)
			}
			lines = append(lines, row("Size", size))
		}
	}
	lines = append(lines, "", subtitleStyle.Render("Press any key to close"))
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// startSearch runs the search in the background, pollSearch picks it up.
func (m *Model) startSearch(term string) {
	if m.searchCancel != nil {
		m.searchCancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	f, err := m.session.Search(ctx, term)
	if err != nil {
		cancel()
		m.report(err)
		return
	}
	m.searching = f
	m.searchCancel = cancel
	m.statusMsg = subtitleStyle.Render(fmt.Sprintf("Searching %q...", term))
}

func (m *Model) pollSearch() {
	if m.searching == nil {
		return
	}
	res, ok, err := m.searching.Poll()
	if !ok {
		return
	}
	m.searching = nil
	m.searchCancel()
	m.searchCancel = nil

	switch {
	case err != nil:
		m.report(err)
	case len(res.Matches) == 0:
		m.statusMsg = subtitleStyle.Render(fmt.Sprintf("No files found matching %q", res.Term))
	default:
		m.found = res
		m.foundAt = 0
		m.statusMsg = ""
		if m.mode == explorerMode {
			m.mode = searchMode
		}
	}
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.found.Matches)
	switch {
	case key.Matches(msg, m.keys.cancel), msg.String() == "q":
		m.mode = explorerMode
	case key.Matches(msg, m.keys.up):
		m.foundAt--
	case key.Matches(msg, m.keys.down):
		m.foundAt++
	case key.Matches(msg, m.keys.pageUp):
		m.foundAt -= m.pageSize
	case key.Matches(msg, m.keys.pageDown):
		m.foundAt += m.pageSize
	case key.Matches(msg, m.keys.home):
		m.foundAt = 0
	case key.Matches(msg, m.keys.end):
		m.foundAt = n - 1
	case key.Matches(msg, m.keys.execute):
		if n > 0 {
			m.mode = explorerMode
			m.report(m.session.Reveal(m.found.Matches[m.foundAt]))
		}
		return m, nil
	}
	m.foundAt = max(min(m.foundAt, n-1), 0)
	return m, nil
}

func (m Model) searchView() string {
	width, height := m.size()
	rows := max(height-6, 1)

	head := fmt.Sprintf("%d matches for %q in %s", len(m.found.Matches), m.found.Term, m.found.Root)
	if m.found.Truncated {
		head += " (first results only)"
	}
	lines := []string{subtitleStyle.Render(fit(head, width-2))}

	start, end := window(len(m.found.Matches), m.foundAt, rows)
	for j := start; j < end; j++ {
		e := m.found.Matches[j]
		name := e.Name
		if e.IsDir() {
			name += "/"
		}
		line := fit(" "+name, width-2)
		switch {
		case j == m.foundAt:
			line = cursorStyle.Render(line)
		case e.IsDir():
			line = dirStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) clip(cut bool) {
	verb, fn := "copied", m.session.ClipboardCopy
	if cut {
		verb, fn = "cut", m.session.ClipboardCut
	}
	n, err := fn()
	if err != nil {
		m.report(err)
		return
	}
	m.statusMsg = successStyle.Render(fmt.Sprintf("%d item(s) %s to clipboard", n, verb))
}

func (m *Model) paste() {
	h, err := m.session.Paste(m.ctx)
	if err != nil {
		m.report(err)
		return
	}
	m.statusMsg = subtitleStyle.Render(fmt.Sprintf("Started %s", h.Request().Kind))
}

func (m *Model) gotoDir(path string) {
	got, err := m.session.Goto(path)
	if err != nil {
		m.report(err)
		return
	}
	m.statusMsg = successStyle.Render("Moved to " + got)
}

func clipboardLabel(op string, n int) string {
	return fmt.Sprintf("clipboard: %s %d", op, n)
}
