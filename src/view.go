package src

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/session"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	title := titleStyle.Render(strings.TrimSpace(appName+" "+m.version)) + " " +
		subtitleStyle.Render("policy: "+m.session.Policy().String())
	if c, ok := m.session.Clipboard(); ok {
		op := "copy"
		if c.Op == session.OpMove {
			op = "cut"
		}
		title += " " + subtitleStyle.Render(clipboardLabel(op, len(c.Paths)))
	}
	fBar := fBarStyle.Render(fBarContent)

	switch m.mode {
	case viewerMode:
		help := subtitleStyle.Render(helpString(m.keys.cancel) + " • " + "arrows: scroll")
		return lipgloss.JoinVertical(lipgloss.Left, title, subtitleStyle.Render("Viewing: "+m.viewerFile),
			viewerStyle.Render(m.viewer.View()), m.statusMsg, help)
	case editorMode:
		help := subtitleStyle.Render(helpString(m.keys.save) + " • " + helpString(m.keys.cancel))
		return lipgloss.JoinVertical(lipgloss.Left, title, subtitleStyle.Render("Editing: "+m.editorFile),
			editorStyle.Render(m.editor.View()), m.statusMsg, help)
	case processMode, processConfirmMode:
		return lipgloss.JoinVertical(lipgloss.Left, title, m.processView(), m.statusMsg, m.processHelp())
	case infoMode:
		return lipgloss.JoinVertical(lipgloss.Left, title, m.infoView(), m.statusMsg)
	case searchMode:
		help := subtitleStyle.Render(helpString(m.keys.execute) + " • " + helpString(m.keys.cancel))
		return lipgloss.JoinVertical(lipgloss.Left, title, m.searchView(), m.statusMsg, help)
	}

	width, _ := m.size()
	inner := max(width/2-4, 10)
	rows := m.listRows()
	left := m.panelView(0, inner, rows)
	right := m.panelView(1, inner, rows)

	parts := []string{title, lipgloss.JoinHorizontal(lipgloss.Top, left, right)}
	parts = append(parts, m.taskLines()...)
	if m.mode == promptMode || m.mode == jumpMode {
		parts = append(parts, inputStyle.Render(m.input.View()))
	}
	parts = append(parts, m.statusMsg, fBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) size() (int, int) {
	if m.width == 0 || m.height == 0 {
		return defaultWidth, defaultHeight
	}
	return m.width, m.height
}

// listRows is the number of entries a panel shows: everything but the
// title, the borders, the path line, the task bars, the input box, the
// status line and the function bar.
func (m Model) listRows() int {
	_, height := m.size()
	chrome := 1 + 2 + 1 + len(m.session.Tasks()) + 1 + 1
	if m.mode == promptMode || m.mode == jumpMode {
		chrome += 3
	}
	return max(height-chrome, 1)
}

func (m Model) panelView(i, width, rows int) string {
	p := m.session.Panel(i)
	active := i == m.session.ActiveIndex()

	key, asc := p.Sort()
	arrow := "↑"
	if !asc {
		arrow = "↓"
	}
	order := key.String() + arrow
	head := fit(p.Path(), width-runewidth.StringWidth(order)-1) + " " + order
	lines := []string{headerStyle.Render(head)}

	entries := p.Entries()
	start, end := window(len(entries), p.Cursor(), rows)
	for j := start; j < end; j++ {
		e := entries[j]
		sel := p.IsSelected(e.Path)
		line := entryRow(e, sel, width)
		switch {
		case active && j == p.Cursor():
			line = cursorStyle.Render(line)
		case sel:
			line = selectedStyle.Render(line)
		case e.Kind == model.EntryKindSymlink:
			line = linkStyle.Render(line)
		case e.IsDir():
			line = dirStyle.Render(line)
		}
		lines = append(lines, line)
	}
	for len(lines) < rows+1 {
		lines = append(lines, strings.Repeat(" ", width))
	}
	if n := len(p.Selected()); n > 0 {
		lines[len(lines)-1] = selectedStyle.Render(fit(fmt.Sprintf("%d selected", n), width))
	}

	style := panelStyle
	if active {
		style = activePanelStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) taskLines() []string {
	var out []string
	for _, h := range m.session.Tasks() {
		p := h.Progress()
		label := fmt.Sprintf(" %s %d/%d files, %s/%s", h.Request().Kind, p.DoneFiles, p.TotalFiles,
			humanize.IBytes(uint64(p.DoneBytes)), humanize.IBytes(uint64(p.TotalBytes)))
		if p.Current != "" {
			label += " " + runewidth.Truncate(filepath.Base(p.Current), 30, "…")
		}
		out = append(out, m.progress.ViewAs(p.Fraction())+label)
	}
	return out
}

func (m Model) processView() string {
	width, height := m.size()
	rows := max(height-6, 1)

	key, asc := m.procs.Sort()
	order := "desc"
	if asc {
		order = "asc"
	}
	lines := []string{
		subtitleStyle.Render(fmt.Sprintf("Processes: %d, sorted by %s %s", len(m.procs.Processes()), key, order)),
		headerStyle.Render(processHeader(width - 2)),
	}
	if err := m.procs.Err(); err != nil {
		lines = append(lines, errorStyle.Render(err.Error()))
	}

	all := m.procs.Processes()
	start, end := window(len(all), m.procs.Cursor(), rows)
	for j := start; j < end; j++ {
		line := processRow(all[j], width-2)
		if j == m.procs.Cursor() {
			line = cursorStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if m.mode == processConfirmMode {
		s := m.signal
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Send %s to %d (%s)? (y/n)",
			s.kind, s.pid, runewidth.Truncate(s.command, 40, "…"))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) processHelp() string {
	return subtitleStyle.Render(strings.Join([]string{
		helpString(m.procKeys.kill),
		helpString(m.procKeys.forceKill),
		helpString(m.procKeys.refresh),
		helpString(m.procKeys.sortPID),
		helpString(m.procKeys.close),
	}, " • "))
}

func (m Model) helpLine() string {
	return subtitleStyle.Render(strings.Join([]string{
		helpString(m.keys.tab),
		helpString(m.keys.execute),
		helpString(m.keys.cancel),
		helpString(m.keys.back),
		helpString(m.keys.selectIt),
		helpString(m.keys.selectAll),
		helpString(m.keys.sortName),
		helpString(m.keys.refresh),
		helpString(m.keys.jump),
		helpString(m.keys.policy),
		helpString(m.keys.stop),
		helpString(m.keys.info),
		helpString(m.keys.gotoDir),
		helpString(m.keys.search),
		helpString(m.keys.clipCopy),
		helpString(m.keys.clipCut),
		helpString(m.keys.paste),
		helpString(m.keys.quit),
	}, " • "))
}
