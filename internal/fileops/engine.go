// Package fileops is the file operation engine: it runs copy, move, delete,
// rename and mkdir tasks on background workers and reports their progress.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/kstost/cokacdir/internal/log"
	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/task"
)

// EngineConfig is the configuration for the file operation engine.
type EngineConfig struct {
	Logger log.Logger
	// Rename is the atomic rename primitive. Defaults to os.Rename.
	Rename func(oldpath, newpath string) error
	// ItemHook, when set, is called by the worker before each item, right
	// before the cancellation check.
	ItemHook func(id, path string)
}

func (c *EngineConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "fileops.Engine"})

	if c.Rename == nil {
		c.Rename = os.Rename
	}
	if c.ItemHook == nil {
		c.ItemHook = func(string, string) {}
	}
	return nil
}

// Engine runs file tasks asynchronously. It owns every task from submission
// until the task is terminal and acknowledged.
type Engine struct {
	logger   log.Logger
	rename   func(oldpath, newpath string) error
	itemHook func(id, path string)
	locks    *task.PathLocks

	mu    sync.Mutex
	tasks map[string]*Handle
	wg    sync.WaitGroup
}

// NewEngine returns a new file operation engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		logger:   cfg.Logger,
		rename:   cfg.Rename,
		itemHook: cfg.ItemHook,
		locks:    task.NewPathLocks(),
		tasks:    map[string]*Handle{},
	}, nil
}

// Handle is the UI side of a submitted task: read-only progress and cancellation.
type Handle struct {
	id      string
	req     model.TaskRequest
	tracker *task.Tracker
	token   *task.Token
	acked   atomic.Bool
}

// ID returns the task identifier.
func (h *Handle) ID() string { return h.id }

// Request returns the normalised request of the task.
func (h *Handle) Request() model.TaskRequest { return h.req }

// Progress returns a snapshot of the task progress.
func (h *Handle) Progress() model.Progress { return h.tracker.Snapshot() }

// Changed is signalled when the progress changes.
func (h *Handle) Changed() <-chan struct{} { return h.tracker.Changed() }

// Done is closed when the task reaches a terminal status.
func (h *Handle) Done() <-chan struct{} { return h.tracker.Done() }

// Cancel asks the worker to stop before the next file. It returns false once
// the task is terminal or has been acknowledged.
func (h *Handle) Cancel() bool {
	if h.acked.Load() || h.tracker.Snapshot().Status.Terminal() {
		return false
	}
	h.token.Cancel()
	return true
}

// Wait blocks until the task is terminal or ctx is done.
func (h *Handle) Wait(ctx context.Context) (model.Progress, error) {
	select {
	case <-h.Done():
		return h.Progress(), nil
	case <-ctx.Done():
		return h.Progress(), ctx.Err()
	}
}

// Submit validates the request, reserves its paths and starts the worker.
// It fails with model.ErrBusy when an active task works on overlapping paths.
func (e *Engine) Submit(ctx context.Context, req model.TaskRequest) (*Handle, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(lockPaths(req)...)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		id:      ulid.Make().String(),
		req:     req,
		tracker: task.NewTracker(req.Kind),
		token:   task.NewToken(context.WithoutCancel(ctx)),
	}

	e.mu.Lock()
	e.tasks[h.id] = h
	e.mu.Unlock()

	e.logger.Infof("Task %s submitted: %s %v -> %q (%s)", h.id, req.Kind, req.Sources, req.Destination, req.Policy)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(h, release)
	}()

	return h, nil
}

// Tasks returns the registered tasks in submission order.
func (e *Engine) Tasks() []*Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	hs := make([]*Handle, 0, len(e.tasks))
	for _, h := range e.tasks {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].id < hs[j].id })
	return hs
}

// Acknowledge removes a terminal task from the registry. Its handle can no
// longer be cancelled afterwards.
func (e *Engine) Acknowledge(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.tasks[id]
	if !ok {
		return model.NewPathError(model.ErrNotFound, "task "+id, nil)
	}
	if !h.tracker.Snapshot().Status.Terminal() {
		return model.NewPathError(model.ErrBusy, "task "+id, nil)
	}
	h.acked.Store(true)
	delete(e.tasks, id)
	return nil
}

// Shutdown cancels every active task and waits for the workers to stop.
func (e *Engine) Shutdown(ctx context.Context) error {
	for _, h := range e.Tasks() {
		h.Cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes the task and releases its paths before publishing the
// terminal status, so a caller woken by Done can resubmit right away.
func (e *Engine) run(h *Handle, release func()) {
	var err error
	w := &worker{engine: e, h: h}

	switch h.req.Kind {
	case model.TaskKindCopy:
		err = w.copy()
	case model.TaskKindMove:
		err = w.move()
	case model.TaskKindDelete:
		err = w.delete()
	case model.TaskKindRename:
		err = w.renameOne()
	case model.TaskKindMkdir:
		err = w.mkdir()
	default:
		err = fmt.Errorf("unknown task kind %s: %w", h.req.Kind, model.ErrNotValid)
	}

	h.token.Release()
	release()

	switch {
	case err == nil:
		h.tracker.Finish(model.TaskStatusSucceeded, nil)
		e.logger.Infof("Task %s succeeded", h.id)
	case errors.Is(err, model.ErrCancelled):
		h.tracker.Finish(model.TaskStatusCancelled, err)
		e.logger.Infof("Task %s cancelled", h.id)
	default:
		h.tracker.Finish(model.TaskStatusFailed, err)
		e.logger.Warningf("Task %s failed: %s", h.id, err)
	}
}

func normalize(req model.TaskRequest) (model.TaskRequest, error) {
	out := model.TaskRequest{Kind: req.Kind, Policy: req.Policy}
	for _, s := range req.Sources {
		abs, err := filepath.Abs(s)
		if err != nil {
			return req, model.NewPathError(model.ErrNotValid, s, err)
		}
		out.Sources = append(out.Sources, abs)
	}

	dst := req.Destination
	if req.Kind == model.TaskKindRename && dst != "" && !filepath.IsAbs(dst) && len(out.Sources) == 1 {
		// A bare name renames in place.
		if err := ValidateFilename(dst); err != nil {
			return req, err
		}
		dst = filepath.Join(filepath.Dir(out.Sources[0]), dst)
	}
	if dst != "" {
		abs, err := filepath.Abs(dst)
		if err != nil {
			return req, model.NewPathError(model.ErrNotValid, dst, err)
		}
		out.Destination = abs
	}

	invalid := func(msg string) error {
		return fmt.Errorf("%s %s: %w", req.Kind, msg, model.ErrNotValid)
	}
	switch req.Kind {
	case model.TaskKindCopy, model.TaskKindMove:
		if len(out.Sources) == 0 {
			return req, invalid("needs at least one source")
		}
		if out.Destination == "" {
			return req, invalid("needs a destination")
		}
	case model.TaskKindDelete:
		if len(out.Sources) == 0 {
			return req, invalid("needs at least one source")
		}
	case model.TaskKindRename:
		if len(out.Sources) != 1 || out.Destination == "" {
			return req, invalid("needs one source and a new name")
		}
	case model.TaskKindMkdir:
		if out.Destination == "" {
			return req, invalid("needs a directory path")
		}
	default:
		return req, invalid("is not supported")
	}
	return out, nil
}

func lockPaths(req model.TaskRequest) []string {
	switch req.Kind {
	case model.TaskKindCopy, model.TaskKindMove:
		paths := append([]string{}, req.Sources...)
		for _, s := range req.Sources {
			paths = append(paths, filepath.Join(req.Destination, filepath.Base(s)))
		}
		return paths
	case model.TaskKindDelete:
		return req.Sources
	case model.TaskKindRename:
		return []string{req.Sources[0], req.Destination}
	default:
		return []string{req.Destination}
	}
}
