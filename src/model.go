// Package src is the terminal front-end: a bubbletea program over the
// session, the file engine and the process manager.
package src

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kstost/cokacdir/internal/log"
	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/procs"
	"github.com/kstost/cokacdir/internal/session"
	"github.com/kstost/cokacdir/internal/task"
)

// Config is the configuration of the UI model.
type Config struct {
	Logger    log.Logger
	Session   *session.Session
	Processes *procs.Manager
	// PageSize is the PgUp/PgDn step until the terminal size is known.
	PageSize int
	Version  string
}

func (c *Config) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "src.Model"})

	if c.Session == nil {
		return fmt.Errorf("session is required")
	}
	if c.Processes == nil {
		return fmt.Errorf("process manager is required")
	}
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	return nil
}

type promptKind int

const (
	promptCopy promptKind = iota
	promptMove
	promptRename
	promptMkdir
	promptDelete
	promptGoto
	promptSearch
)

type tickMsg time.Time

// Model is the bubbletea model. It is the single owner of the session and
// the process manager.
type Model struct {
	ctx      context.Context
	logger   log.Logger
	session  *session.Session
	procs    *procs.Manager
	version  string
	keys     keyMap
	procKeys processKeyMap
	mode     mode
	pageSize int
	width    int
	height   int

	input      textinput.Model
	prompt     promptKind
	viewer     viewport.Model
	viewerFile string
	editor     textarea.Model
	editorFile string
	progress   progress.Model
	signal     pendingKill

	info         model.DirectoryEntry
	usage        *task.Future[model.DirUsage]
	infoCancel   context.CancelFunc
	searching    *task.Future[model.SearchResult]
	searchCancel context.CancelFunc
	found        model.SearchResult
	foundAt      int

	statusMsg string
	quitting  bool
}

// NewModel returns the UI model. ctx bounds every background job started
// from the UI.
func NewModel(ctx context.Context, cfg Config) (Model, error) {
	if err := cfg.defaults(); err != nil {
		return Model{}, fmt.Errorf("invalid config: %w", err)
	}

	ti := textinput.New()
	ti.Width = 60
	ta := textarea.New()
	ta.Placeholder = "Edit your file here..."
	ta.CharLimit = 0
	ta.MaxHeight = 0
	prog := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))

	return Model{
		ctx:      ctx,
		logger:   cfg.Logger,
		session:  cfg.Session,
		procs:    cfg.Processes,
		version:  cfg.Version,
		keys:     newKeyMap(),
		procKeys: newProcessKeyMap(),
		mode:     explorerMode,
		pageSize: cfg.PageSize,
		input:    ti,
		viewer:   viewport.New(80, 20),
		editor:   ta,
		progress: prog,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
