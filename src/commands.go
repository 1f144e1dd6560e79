package src

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kstost/cokacdir/internal/fileops"
	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/session"
)

type pendingKill struct {
	pid     int
	command string
	kind    model.SignalKind
}

// open enters directories and views files.
func (m *Model) open() {
	p := m.session.Active()
	cur, ok := p.Current()
	if !ok {
		return
	}
	if cur.IsDir() {
		m.report(p.Navigate(cur))
		return
	}
	m.openViewer()
}

func (m *Model) openPrompt(kind promptKind, label, value string) tea.Cmd {
	m.mode = promptMode
	m.prompt = kind
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) openTransfer(kind promptKind) tea.Cmd {
	targets := m.session.Active().Targets()
	if len(targets) == 0 {
		m.report(fmt.Errorf("nothing selected: %w", model.ErrNotValid))
		return nil
	}
	verb := "Copy"
	if kind == promptMove {
		verb = "Move"
	}
	label := fmt.Sprintf("%s %s to: ", verb, describe(targets))
	return m.openPrompt(kind, label, m.session.Inactive().Path())
}

func (m *Model) openRename() tea.Cmd {
	cur, ok := m.session.Active().Current()
	if !ok || cur.Parent {
		m.report(fmt.Errorf("nothing to rename: %w", model.ErrNotValid))
		return nil
	}
	return m.openPrompt(promptRename, "Rename to: ", cur.Name)
}

func (m *Model) openDelete() {
	targets := m.session.Active().Targets()
	if len(targets) == 0 {
		m.report(fmt.Errorf("nothing selected: %w", model.ErrNotValid))
		return
	}
	m.mode = promptMode
	m.prompt = promptDelete
	m.input.Prompt = fmt.Sprintf("Delete %s? (y/n)", describe(targets))
	m.input.SetValue("")
}

// submitPrompt acts on the answered prompt, most prompts become a task.
func (m *Model) submitPrompt() {
	value := strings.TrimSpace(m.input.Value())
	switch m.prompt {
	case promptGoto:
		m.gotoDir(value)
		return
	case promptSearch:
		m.startSearch(value)
		return
	}

	var (
		h   *fileops.Handle
		err error
	)
	switch m.prompt {
	case promptCopy:
		h, err = m.session.Apply(m.ctx, session.Intent{Op: session.OpCopy, Destination: value})
	case promptMove:
		h, err = m.session.Apply(m.ctx, session.Intent{Op: session.OpMove, Destination: value})
	case promptRename:
		h, err = m.session.Rename(m.ctx, m.input.Value())
	case promptMkdir:
		h, err = m.session.Mkdir(m.ctx, m.input.Value())
	case promptDelete:
		h, err = m.session.Delete(m.ctx)
	}
	if err != nil {
		m.report(err)
		return
	}
	m.statusMsg = subtitleStyle.Render(fmt.Sprintf("Started %s", h.Request().Kind))
}

func (m *Model) openViewer() {
	p := m.session.Active()
	cur, ok := p.Current()
	if !ok {
		return
	}
	if cur.IsDir() {
		m.report(p.Navigate(cur))
		return
	}

	data, truncated, err := readFile(p.FS(), cur.Path, maxFileSizeForView)
	if err != nil {
		m.report(err)
		return
	}
	content := highlight(cur.Name, data)
	if truncated {
		content += "\n" + subtitleStyle.Render("(truncated)")
	}
	m.viewer.SetContent(content)
	m.viewer.GotoTop()
	m.viewerFile = cur.Path
	m.mode = viewerMode
}

func (m *Model) openEditor() tea.Cmd {
	p := m.session.Active()
	cur, ok := p.Current()
	if !ok || cur.Kind != model.EntryKindFile {
		m.report(fmt.Errorf("only regular files can be edited: %w", model.ErrNotValid))
		return nil
	}
	if cur.Size > maxFileSizeForEdit {
		m.report(model.NewPathError(model.ErrNotValid, cur.Path, errors.New("file too large to edit")))
		return nil
	}

	data, _, err := readFile(p.FS(), cur.Path, maxFileSizeForEdit)
	if err != nil {
		m.report(err)
		return nil
	}
	m.editor.SetValue(string(data))
	m.editorFile = cur.Path
	m.mode = editorMode
	return m.editor.Focus()
}

func (m *Model) saveEditor() {
	if err := fileops.WriteFileAtomic(m.editorFile, []byte(m.editor.Value())); err != nil {
		m.report(err)
		return
	}
	m.logger.Infof("Saved %s", m.editorFile)
	m.statusMsg = successStyle.Render("File saved")
	m.mode = explorerMode
	m.editor.Blur()
	for _, i := range []int{0, 1} {
		m.report(m.session.Panel(i).Reload())
	}
}

func (m *Model) openProcesses() {
	m.mode = processMode
	m.procs.Refresh(m.ctx)
}

func (m *Model) askSignal(force bool) {
	proc, ok := m.procs.Selected()
	if !ok {
		return
	}
	kind := model.SignalGraceful
	if force {
		kind = model.SignalForced
	}
	m.signal = pendingKill{pid: proc.PID, command: proc.Command, kind: kind}
	m.mode = processConfirmMode
}

func (m *Model) sendSignal() {
	s := m.signal
	if err := m.procs.Signal(m.ctx, s.pid, s.kind); err != nil {
		m.report(err)
		return
	}
	m.statusMsg = subtitleStyle.Render(fmt.Sprintf("Sending %s to %d", s.kind, s.pid))
}

func (m *Model) notify(n model.Notice) {
	if n.Err != nil {
		m.logger.Warningf("%s", n.Err)
		m.statusMsg = errorStyle.Render(n.String())
		return
	}
	m.statusMsg = successStyle.Render(n.String())
}

func (m *Model) report(err error) {
	if err != nil {
		m.notify(model.Notice{Err: err})
	}
}

func describe(targets []model.DirectoryEntry) string {
	if len(targets) == 1 {
		return targets[0].Name
	}
	return fmt.Sprintf("%d items", len(targets))
}
