// Package session is the dual-panel controller: two panels, the active
// one, and the file tasks submitted from them.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/kstost/cokacdir/internal/fileops"
	"github.com/kstost/cokacdir/internal/log"
	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/panel"
)

// Config is the configuration of a session.
type Config struct {
	Logger log.Logger
	Engine *fileops.Engine
	FS     panel.FS
	// Left and Right are the start directories. Default to the working directory.
	Left   string
	Right  string
	Policy model.ConflictPolicy
}

func (c *Config) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "session.Session"})

	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}
	if c.FS == nil {
		c.FS = panel.LocalFS{}
	}
	if c.Left == "" {
		c.Left = "."
	}
	if c.Right == "" {
		c.Right = c.Left
	}
	return nil
}

// Session is owned by the UI goroutine.
type Session struct {
	logger    log.Logger
	engine    *fileops.Engine
	panels    [2]*panel.Panel
	active    int
	policy    model.ConflictPolicy
	watched   []*fileops.Handle
	clipboard *Clipboard
	// pending notices are returned by the next Poll.
	pending []model.Notice
}

// New returns a session with both panels loaded.
func New(cfg Config) (*Session, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Session{
		logger: cfg.Logger,
		engine: cfg.Engine,
		policy: cfg.Policy,
	}
	for i, dir := range []string{cfg.Left, cfg.Right} {
		p := panel.New(cfg.FS)
		if err := s.open(p, dir); err != nil {
			return nil, fmt.Errorf("could not open panel %d: %w", i, err)
		}
		s.panels[i] = p
	}
	return s, nil
}

// open loads the start directory of a panel. A directory that cannot be
// listed is replaced by its nearest listable ancestor, then by the working
// directory, and the substitution is reported by the next Poll.
func (s *Session) open(p *panel.Panel, dir string) error {
	want, err := filepath.Abs(dir)
	if err != nil {
		want = dir
	}

	got, err := p.Goto(want)
	if err != nil {
		wd, werr := os.Getwd()
		if werr != nil {
			return err
		}
		if got, err = p.Goto(wd); err != nil {
			return err
		}
	}

	if got != want {
		s.logger.Warningf("Could not open %s, showing %s", want, got)
		s.pending = append(s.pending, model.Notice{Text: fmt.Sprintf("%s is not available, showing %s", want, got)})
	}
	return nil
}

// Panel returns the panel at index i (0 left, 1 right).
func (s *Session) Panel(i int) *panel.Panel { return s.panels[i&1] }

// ActiveIndex returns the index of the active panel.
func (s *Session) ActiveIndex() int { return s.active }

// Active returns the panel key bindings apply to.
func (s *Session) Active() *panel.Panel { return s.panels[s.active] }

// Inactive returns the other panel, the target of copy and move.
func (s *Session) Inactive() *panel.Panel { return s.panels[1-s.active] }

// Toggle switches the active panel.
func (s *Session) Toggle() { s.active = 1 - s.active }

// Policy returns the conflict policy used for the next tasks.
func (s *Session) Policy() model.ConflictPolicy { return s.policy }

// CyclePolicy moves to the next conflict policy and returns it.
func (s *Session) CyclePolicy() model.ConflictPolicy {
	s.policy = s.policy.Next()
	return s.policy
}

// Copy copies the active panel targets into the inactive panel directory.
func (s *Session) Copy(ctx context.Context) (*fileops.Handle, error) {
	return s.Apply(ctx, Intent{Op: OpCopy})
}

// Move moves the active panel targets into the inactive panel directory.
func (s *Session) Move(ctx context.Context) (*fileops.Handle, error) {
	return s.Apply(ctx, Intent{Op: OpMove})
}

// Delete deletes the active panel targets.
func (s *Session) Delete(ctx context.Context) (*fileops.Handle, error) {
	return s.Apply(ctx, Intent{Op: OpDelete})
}

// Rename renames the entry under the cursor.
func (s *Session) Rename(ctx context.Context, name string) (*fileops.Handle, error) {
	cur, ok := s.Active().Current()
	if !ok || cur.Parent {
		return nil, fmt.Errorf("nothing to rename: %w", model.ErrNotValid)
	}
	return s.Apply(ctx, Intent{Op: OpRename, Paths: []string{cur.Path}, Name: name})
}

// Mkdir creates a directory in the active panel.
func (s *Session) Mkdir(ctx context.Context, name string) (*fileops.Handle, error) {
	return s.Apply(ctx, Intent{Op: OpMkdir, Name: name})
}

func (s *Session) submit(ctx context.Context, req model.TaskRequest) (*fileops.Handle, error) {
	h, err := s.engine.Submit(ctx, req)
	if err != nil {
		s.logger.Warningf("Could not submit %s: %s", req.Kind, err)
		return nil, err
	}
	s.watched = append(s.watched, h)
	return h, nil
}

// Tasks returns the tasks watched by the session, oldest first.
func (s *Session) Tasks() []*fileops.Handle { return s.watched }

// CancelLatest cancels the most recent task still running.
func (s *Session) CancelLatest() bool {
	for i := len(s.watched) - 1; i >= 0; i-- {
		if s.watched[i].Cancel() {
			return true
		}
	}
	return false
}

// Poll collects finished tasks once per UI tick: it reports them, reloads
// both panels and acknowledges them in the engine. Notices raised outside a
// task, like a replaced start directory, come first.
func (s *Session) Poll() []model.Notice {
	notices := s.pending
	s.pending = nil
	finished := false

	running := s.watched[:0]
	for _, h := range s.watched {
		select {
		case <-h.Done():
		default:
			running = append(running, h)
			continue
		}

		finished = true
		notices = append(notices, taskNotice(h))
		if err := s.engine.Acknowledge(h.ID()); err != nil {
			s.logger.Errorf("Could not acknowledge task %s: %s", h.ID(), err)
		}
	}
	s.watched = running

	if finished {
		for _, p := range s.panels {
			if err := p.Reload(); err != nil {
				notices = append(notices, model.Notice{Err: err})
			}
		}
	}
	return notices
}

func taskNotice(h *fileops.Handle) model.Notice {
	p := h.Progress()
	kind := h.Request().Kind
	switch p.Status {
	case model.TaskStatusSucceeded:
		text := fmt.Sprintf("%s done: %d files, %s", kind, p.DoneFiles, humanize.IBytes(uint64(p.DoneBytes)))
		if p.Skipped > 0 {
			text += fmt.Sprintf(", %d skipped", p.Skipped)
		}
		return model.Notice{Text: text}
	case model.TaskStatusCancelled:
		return model.Notice{Text: fmt.Sprintf("%s cancelled after %d of %d files", kind, p.DoneFiles, p.TotalFiles)}
	default:
		err := p.Err
		if err == nil {
			err = errors.New("unknown failure")
		}
		return model.Notice{Err: fmt.Errorf("%s failed: %w", kind, err)}
	}
}
