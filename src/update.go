package src

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kstost/cokacdir/internal/panel"
	"github.com/kstost/cokacdir/internal/procs"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.poll(time.Time(msg))
		return m, tick()
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case promptMode:
			return m.updatePrompt(msg)
		case jumpMode:
			return m.updateJump(msg)
		case viewerMode:
			return m.updateViewer(msg)
		case editorMode:
			return m.updateEditor(msg)
		case processMode:
			return m.updateProcesses(msg)
		case processConfirmMode:
			return m.updateConfirm(msg)
		case infoMode:
			return m.updateInfo(msg)
		case searchMode:
			return m.updateSearch(msg)
		}
		return m.updateExplorer(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case promptMode, jumpMode:
		m.input, cmd = m.input.Update(msg)
	case editorMode:
		m.editor, cmd = m.editor.Update(msg)
	case viewerMode:
		m.viewer, cmd = m.viewer.Update(msg)
	}
	return m, cmd
}

func (m Model) updateExplorer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.session.Active()
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.statusMsg = m.helpLine()
	case key.Matches(msg, m.keys.up):
		p.MoveCursor(-1)
	case key.Matches(msg, m.keys.down):
		p.MoveCursor(1)
	case key.Matches(msg, m.keys.pageUp):
		p.PageUp(m.pageSize)
	case key.Matches(msg, m.keys.pageDown):
		p.PageDown(m.pageSize)
	case key.Matches(msg, m.keys.home):
		p.Home()
	case key.Matches(msg, m.keys.end):
		p.End()
	case key.Matches(msg, m.keys.tab):
		m.session.Toggle()
	case key.Matches(msg, m.keys.execute):
		m.open()
	case key.Matches(msg, m.keys.cancel):
		m.report(p.Parent())
	case key.Matches(msg, m.keys.back):
		m.report(p.Back())
	case key.Matches(msg, m.keys.selectIt):
		if cur, ok := p.Current(); ok {
			p.ToggleSelect(cur)
		}
		p.MoveCursor(1)
	case key.Matches(msg, m.keys.selectAll):
		p.SelectAll()
	case key.Matches(msg, m.keys.sortName):
		p.SetSort(panel.SortName)
	case key.Matches(msg, m.keys.sortSize):
		p.SetSort(panel.SortSize)
	case key.Matches(msg, m.keys.sortDate):
		p.SetSort(panel.SortDate)
	case key.Matches(msg, m.keys.refresh):
		m.report(p.Reload())
	case key.Matches(msg, m.keys.jump):
		m.mode = jumpMode
		m.input.Prompt = "/"
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.policy):
		m.statusMsg = subtitleStyle.Render("Conflict policy: " + m.session.CyclePolicy().String())
	case key.Matches(msg, m.keys.stop):
		if !m.session.CancelLatest() {
			m.statusMsg = subtitleStyle.Render("No running task")
		}
	case key.Matches(msg, m.keys.rename):
		return m, m.openRename()
	case key.Matches(msg, m.keys.view):
		m.openViewer()
	case key.Matches(msg, m.keys.edit):
		return m, m.openEditor()
	case key.Matches(msg, m.keys.copy):
		return m, m.openTransfer(promptCopy)
	case key.Matches(msg, m.keys.move):
		return m, m.openTransfer(promptMove)
	case key.Matches(msg, m.keys.mkdir):
		return m, m.openPrompt(promptMkdir, "Mkdir: ", "")
	case key.Matches(msg, m.keys.delete):
		m.openDelete()
	case key.Matches(msg, m.keys.processes):
		m.openProcesses()
	case key.Matches(msg, m.keys.info):
		m.openInfo()
	case key.Matches(msg, m.keys.gotoDir):
		return m, m.openPrompt(promptGoto, "Go to: ", p.Path())
	case key.Matches(msg, m.keys.search):
		return m, m.openPrompt(promptSearch, "Find: ", "")
	case key.Matches(msg, m.keys.clipCopy):
		m.clip(false)
	case key.Matches(msg, m.keys.clipCut):
		m.clip(true)
	case key.Matches(msg, m.keys.paste):
		m.paste()
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt == promptDelete {
		switch {
		case key.Matches(msg, m.keys.yes):
			m.mode = explorerMode
			m.submitPrompt()
		case key.Matches(msg, m.keys.no):
			m.mode = explorerMode
			m.statusMsg = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.execute):
		m.mode = explorerMode
		m.input.Blur()
		m.submitPrompt()
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		m.mode = explorerMode
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.execute) || key.Matches(msg, m.keys.cancel) {
		m.mode = explorerMode
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.Active().Jump(m.input.Value())
	return m, cmd
}

func (m Model) updateViewer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel, m.keys.view) || msg.String() == "q" {
		m.mode = explorerMode
		return m, nil
	}
	var cmd tea.Cmd
	m.viewer, cmd = m.viewer.Update(msg)
	return m, cmd
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.save):
		m.saveEditor()
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		m.mode = explorerMode
		m.editor.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) updateProcesses(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.procKeys.close):
		m.mode = explorerMode
	case key.Matches(msg, m.keys.up):
		m.procs.MoveCursor(-1)
	case key.Matches(msg, m.keys.down):
		m.procs.MoveCursor(1)
	case key.Matches(msg, m.keys.pageUp):
		m.procs.MoveCursor(-m.pageSize)
	case key.Matches(msg, m.keys.pageDown):
		m.procs.MoveCursor(m.pageSize)
	case key.Matches(msg, m.keys.home):
		m.procs.Home()
	case key.Matches(msg, m.keys.end):
		m.procs.End()
	case key.Matches(msg, m.procKeys.kill):
		m.askSignal(false)
	case key.Matches(msg, m.procKeys.forceKill):
		m.askSignal(true)
	case key.Matches(msg, m.procKeys.refresh):
		if !m.procs.Refresh(m.ctx) {
			m.statusMsg = subtitleStyle.Render("Refresh already running")
		}
	case key.Matches(msg, m.procKeys.sortPID):
		m.procs.SetSort(procs.SortPID)
	case key.Matches(msg, m.procKeys.sortCPU):
		m.procs.SetSort(procs.SortCPU)
	case key.Matches(msg, m.procKeys.sortMem):
		m.procs.SetSort(procs.SortMem)
	case key.Matches(msg, m.procKeys.sortName):
		m.procs.SetSort(procs.SortName)
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.mode = processMode
		m.sendSignal()
	case key.Matches(msg, m.keys.no):
		m.mode = processMode
		m.statusMsg = ""
	}
	return m, nil
}

// poll runs once per UI tick. Process results are adopted even with the
// process view closed so signal outcomes are not lost.
func (m *Model) poll(now time.Time) {
	notices := m.session.Poll()
	notices = append(notices, m.procs.Poll(m.ctx)...)
	if m.mode == processMode || m.mode == processConfirmMode {
		m.procs.Tick(m.ctx, now)
	}
	for _, n := range notices {
		m.notify(n)
	}
	m.pollSearch()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = max(width-10, 10)
	m.viewer.Width = max(width-4, 10)
	m.viewer.Height = max(height-5, 3)
	m.editor.SetWidth(max(width-4, 10))
	m.editor.SetHeight(max(height-6, 3))
	m.progress.Width = max(width/4, 10)
	m.pageSize = max(m.listRows()-1, 1)
}
