package src

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kstost/cokacdir/internal/fileops"
	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/procs"
	"github.com/kstost/cokacdir/internal/session"
)

type signalled struct {
	pid  int
	kind model.SignalKind
}

type harness struct {
	src, dst string

	mu      sync.Mutex
	signals []signalled
}

func (h *harness) sent() []signalled {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]signalled(nil), h.signals...)
}

// newTestModel builds:
//
//	src/d/x.txt
//	src/a.txt   "hello"
//	src/b.txt   "bye"
//	dst/
func newTestModel(t *testing.T) (Model, *harness) {
	t.Helper()
	tmp := t.TempDir()
	h := &harness{src: filepath.Join(tmp, "src"), dst: filepath.Join(tmp, "dst")}
	require.NoError(t, os.MkdirAll(filepath.Join(h.src, "d"), 0o755))
	require.NoError(t, os.Mkdir(h.dst, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(h.src, "d", "x.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(h.src, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(h.src, "b.txt"), []byte("bye"), 0o644))

	engine, err := fileops.NewEngine(fileops.EngineConfig{})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})

	sess, err := session.New(session.Config{Engine: engine, Left: h.src, Right: h.dst})
	require.NoError(t, err)

	pm, err := procs.NewManager(procs.ManagerConfig{
		SelfPID: 4242,
		Lister: procs.ListerFunc(func(context.Context) ([]model.ProcessInfo, error) {
			return []model.ProcessInfo{
				{PID: 1, User: "root", Command: "/sbin/init", CPU: 0.1},
				{PID: 300, User: "alice", Command: "vim notes.txt", CPU: 2.5},
				{PID: 500, User: "bob", Command: "cargo build", CPU: 90, RSS: 1 << 30},
			}, nil
		}),
		Signaller: procs.SignallerFunc(func(pid int, kind model.SignalKind) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.signals = append(h.signals, signalled{pid: pid, kind: kind})
			return nil
		}),
	})
	require.NoError(t, err)

	m, err := NewModel(context.Background(), Config{Session: sess, Processes: pm})
	require.NoError(t, err)
	return m, h
}

var specialKeys = map[string]tea.KeyType{
	"enter":     tea.KeyEnter,
	"esc":       tea.KeyEsc,
	"tab":       tea.KeyTab,
	"up":        tea.KeyUp,
	"down":      tea.KeyDown,
	"home":      tea.KeyHome,
	"end":       tea.KeyEnd,
	"backspace": tea.KeyBackspace,
	"space":     tea.KeySpace,
	"f3":        tea.KeyF3,
	"f5":        tea.KeyF5,
	"f8":        tea.KeyF8,
	"f9":        tea.KeyF9,
	"ctrl+s":    tea.KeyCtrlS,
	"ctrl+u":    tea.KeyCtrlU,
	"ctrl+c":    tea.KeyCtrlC,
	"ctrl+x":    tea.KeyCtrlX,
	"ctrl+v":    tea.KeyCtrlV,
}

func keyMsg(k string) tea.KeyMsg {
	if t, ok := specialKeys[k]; ok {
		return tea.KeyMsg{Type: t}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

// settle waits for the background work and delivers one UI tick.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, h := range m.session.Tasks() {
		_, err := h.Wait(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, m.procs.Wait(ctx))

	next, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	return next.(Model)
}

func currentName(m Model) string {
	cur, _ := m.session.Active().Current()
	return cur.Name
}

func TestModelNavigation(t *testing.T) {
	m, h := newTestModel(t)
	assert.Equal(t, "..", currentName(m))

	m = press(m, "down", "enter")
	assert.Equal(t, filepath.Join(h.src, "d"), m.session.Active().Path())

	m = press(m, "esc")
	assert.Equal(t, h.src, m.session.Active().Path())
	assert.Equal(t, "d", currentName(m))

	m = press(m, "backspace")
	assert.Equal(t, filepath.Join(h.src, "d"), m.session.Active().Path())

	m = press(m, "tab")
	assert.Equal(t, 1, m.session.ActiveIndex())
	assert.Equal(t, h.dst, m.session.Active().Path())

	m = press(m, "tab", "end")
	assert.Equal(t, "x.txt", currentName(m))
	m = press(m, "home")
	assert.Equal(t, "..", currentName(m))
}

func TestModelSelection(t *testing.T) {
	m, _ := newTestModel(t)

	// Space toggles and moves down.
	m = press(m, "down", "down", "space")
	assert.Equal(t, "b.txt", currentName(m))
	require.Len(t, m.session.Active().Selected(), 1)
	assert.Equal(t, "a.txt", m.session.Active().Selected()[0].Name)

	m = press(m, "*")
	assert.Len(t, m.session.Active().Selected(), 3)
	m = press(m, "*")
	assert.Empty(t, m.session.Active().Selected())
}

func TestModelSort(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "n")
	var got []string
	for _, e := range m.session.Active().Entries() {
		got = append(got, e.Name)
	}
	assert.Equal(t, []string{"..", "d", "b.txt", "a.txt"}, got)

	m = press(m, "s")
	got = got[:0]
	for _, e := range m.session.Active().Entries() {
		got = append(got, e.Name)
	}
	assert.Equal(t, []string{"..", "d", "b.txt", "a.txt"}, got)
}

func TestModelCopy(t *testing.T) {
	tests := map[string]struct {
		keys    []string
		expFile string
	}{
		"Confirming the prompt should copy into the other panel": {
			keys:    []string{"down", "down", "5", "enter"},
			expFile: "a.txt",
		},
		"F5 should copy too": {
			keys:    []string{"end", "f5", "enter"},
			expFile: "b.txt",
		},
		"Esc should abort the prompt": {
			keys: []string{"down", "down", "5", "esc"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m, h := newTestModel(t)
			m = press(m, test.keys...)
			assert.Equal(t, explorerMode, m.mode)
			m = settle(t, m)

			entries, err := os.ReadDir(h.dst)
			require.NoError(t, err)
			if test.expFile == "" {
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			assert.Equal(t, test.expFile, entries[0].Name())
			assert.Contains(t, m.statusMsg, "copy done: 1 files")
		})
	}
}

func TestModelCopyPromptDestination(t *testing.T) {
	m, h := newTestModel(t)
	other := filepath.Join(filepath.Dir(h.src), "other")
	require.NoError(t, os.Mkdir(other, 0o755))

	m = press(m, "down", "down", "5")
	require.Equal(t, promptMode, m.mode)
	assert.Equal(t, h.dst, m.input.Value())

	m = press(m, "ctrl+u", "../other", "enter")
	m = settle(t, m)
	assert.FileExists(t, filepath.Join(other, "a.txt"))
}

func TestModelDeleteAsksFirst(t *testing.T) {
	m, h := newTestModel(t)
	target := filepath.Join(h.src, "b.txt")

	m = press(m, "end", "8")
	require.Equal(t, promptMode, m.mode)
	assert.Contains(t, m.View(), "Delete b.txt? (y/n)")

	m = press(m, "n")
	assert.Equal(t, explorerMode, m.mode)
	m = settle(t, m)
	assert.FileExists(t, target)

	m = press(m, "f8", "y")
	m = settle(t, m)
	assert.NoFileExists(t, target)
	assert.Contains(t, m.statusMsg, "delete done")
}

func TestModelRenameAndMkdir(t *testing.T) {
	m, h := newTestModel(t)

	m = press(m, "7", "new", "enter")
	m = settle(t, m)
	assert.DirExists(t, filepath.Join(h.src, "new"))

	m = press(m, "end", "2")
	require.Equal(t, promptMode, m.mode)
	assert.Equal(t, "b.txt", m.input.Value())
	m = press(m, "ctrl+u", "c.txt", "enter")
	m = settle(t, m)
	assert.FileExists(t, filepath.Join(h.src, "c.txt"))
	assert.NoFileExists(t, filepath.Join(h.src, "b.txt"))

	// A bad name is refused before anything is submitted.
	m = press(m, "end", "2", "ctrl+u", "../x", "enter")
	assert.Empty(t, m.session.Tasks())
	assert.Contains(t, m.statusMsg, "not valid")
}

func TestModelInvalidCommandsOnParent(t *testing.T) {
	tests := map[string]struct {
		key string
	}{
		"Rename":  {key: "2"},
		"Copy":    {key: "5"},
		"Move":    {key: "6"},
		"Delete":  {key: "8"},
		"Editing": {key: "4"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m, _ := newTestModel(t)
			m = press(m, test.key)
			assert.Equal(t, explorerMode, m.mode)
			assert.NotEmpty(t, m.statusMsg)
			assert.Empty(t, m.session.Tasks())
		})
	}
}

func TestModelViewerAndEditor(t *testing.T) {
	m, h := newTestModel(t)
	file := filepath.Join(h.src, "a.txt")

	m = press(m, "down", "down", "f3")
	require.Equal(t, viewerMode, m.mode)
	assert.Equal(t, file, m.viewerFile)
	m = press(m, "esc")
	assert.Equal(t, explorerMode, m.mode)

	m = press(m, "4")
	require.Equal(t, editorMode, m.mode)
	assert.Equal(t, "hello", m.editor.Value())
	m = press(m, "!", "ctrl+s")
	assert.Equal(t, explorerMode, m.mode)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Len(t, data, len("hello!"))
	assert.Contains(t, string(data), "!")
}

func TestModelJump(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "/")
	require.Equal(t, jumpMode, m.mode)
	m = press(m, "b", "t")
	assert.Equal(t, "b.txt", currentName(m))

	m = press(m, "enter")
	assert.Equal(t, explorerMode, m.mode)
}

func TestModelPolicyAndCancel(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "o")
	assert.Equal(t, model.ConflictOverwrite, m.session.Policy())
	assert.Contains(t, m.statusMsg, "overwrite")

	m = press(m, "x")
	assert.Contains(t, m.statusMsg, "No running task")
}

func TestModelProcessView(t *testing.T) {
	m, h := newTestModel(t)

	m = press(m, "9")
	require.Equal(t, processMode, m.mode)
	m = settle(t, m)
	require.Len(t, m.procs.Processes(), 3)

	// Highest CPU first.
	p, ok := m.procs.Selected()
	require.True(t, ok)
	assert.Equal(t, 500, p.PID)

	m = press(m, "k")
	require.Equal(t, processConfirmMode, m.mode)
	assert.Contains(t, m.View(), "Send SIGTERM to 500")
	m = press(m, "n")
	assert.Equal(t, processMode, m.mode)
	assert.Empty(t, h.sent())

	m = press(m, "down", "K", "y")
	m = settle(t, m)
	assert.Equal(t, []signalled{{pid: 300, kind: model.SignalForced}}, h.sent())
	assert.Contains(t, m.statusMsg, "Sent SIGKILL to 300")

	// The init process is refused without a signal.
	m = press(m, "end", "k", "y")
	assert.Contains(t, m.statusMsg, "protected")
	assert.Len(t, h.sent(), 1)

	m = press(m, "p")
	key, asc := m.procs.Sort()
	assert.Equal(t, procs.SortPID, key)
	assert.True(t, asc)

	// q closes the view instead of quitting.
	m = press(m, "q")
	assert.Equal(t, explorerMode, m.mode)
	assert.False(t, m.quitting)
}

func TestModelQuit(t *testing.T) {
	tests := map[string]struct {
		keys []string
	}{
		"q should quit":                  {keys: []string{"q"}},
		"0 should quit":                  {keys: []string{"0"}},
		"Ctrl+C should quit from prompt": {keys: []string{"7", "ctrl+c"}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m, _ := newTestModel(t)
			var cmd tea.Cmd
			for _, k := range test.keys {
				var next tea.Model
				next, cmd = m.Update(keyMsg(k))
				m = next.(Model)
			}
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.Equal(t, "Goodbye!\n", m.View())
		})
	}
}

func TestModelView(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	m = next.(Model)
	assert.Equal(t, 30-6-1, m.pageSize)

	view := m.View()
	for _, s := range []string{"a.txt", "b.txt", "<DIR>", "<UP>", "fail-fast", "5Copy"} {
		assert.Contains(t, view, s)
	}
}
