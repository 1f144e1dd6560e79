// Package procs is the process manager: a sortable snapshot of the process
// table refreshed in the background and termination signals.
package procs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kstost/cokacdir/internal/log"
	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/task"
)

// SortKey is a process table column.
type SortKey int

const (
	SortCPU SortKey = iota
	SortMem
	SortPID
	SortName
)

func (k SortKey) String() string {
	switch k {
	case SortMem:
		return "mem"
	case SortPID:
		return "pid"
	case SortName:
		return "name"
	default:
		return "cpu"
	}
}

// Usage columns sort biggest first by default.
func (k SortKey) defaultAscending() bool { return k == SortPID || k == SortName }

// ManagerConfig is the configuration of the process manager.
type ManagerConfig struct {
	Logger    log.Logger
	Lister    Lister
	Signaller Signaller
	// Inspector re-reads a process right before it is signalled. Defaults to
	// the lister when it can inspect, otherwise to a full listing.
	Inspector Inspector
	// SelfPID is never signalled. Defaults to the current process.
	SelfPID int
	// RefreshInterval enables periodic refresh on Tick when positive.
	RefreshInterval time.Duration
}

func (c *ManagerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "procs.Manager"})

	if c.Lister == nil {
		c.Lister = PSLister{}
	}
	if c.Signaller == nil {
		c.Signaller = UnixSignaller{}
	}
	if c.Inspector == nil {
		if in, ok := c.Lister.(Inspector); ok {
			c.Inspector = in
		} else {
			c.Inspector = listInspector{lister: c.Lister}
		}
	}
	if c.SelfPID == 0 {
		c.SelfPID = os.Getpid()
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval can't be negative")
	}
	return nil
}

type pendingSignal struct {
	pid    int
	kind   model.SignalKind
	future *task.Future[struct{}]
}

// Manager owns the process snapshot. It is driven from the UI goroutine:
// background work only produces futures that Poll adopts.
type Manager struct {
	logger    log.Logger
	lister    Lister
	signaller Signaller
	inspector Inspector
	selfPID   int
	interval  time.Duration

	procs     []model.ProcessInfo
	sortKey   SortKey
	ascending bool
	cursor    int
	err       error

	refreshing  *task.Future[[]model.ProcessInfo]
	lastRefresh time.Time
	signals     []pendingSignal
}

// NewManager returns a new process manager with an empty snapshot.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Manager{
		logger:    cfg.Logger,
		lister:    cfg.Lister,
		signaller: cfg.Signaller,
		inspector: cfg.Inspector,
		selfPID:   cfg.SelfPID,
		interval:  cfg.RefreshInterval,
		sortKey:   SortCPU,
		ascending: SortCPU.defaultAscending(),
	}, nil
}

// Refresh starts a background enumeration. It returns false when one is
// already running.
func (m *Manager) Refresh(ctx context.Context) bool {
	if m.refreshing != nil {
		return false
	}
	m.lastRefresh = time.Now()
	m.refreshing = task.Go(ctx, m.lister.List)
	return true
}

// Refreshing reports whether an enumeration is in flight.
func (m *Manager) Refreshing() bool { return m.refreshing != nil }

// Tick starts a refresh when the configured interval has elapsed.
func (m *Manager) Tick(ctx context.Context, now time.Time) bool {
	if m.interval <= 0 || now.Sub(m.lastRefresh) < m.interval {
		return false
	}
	return m.Refresh(ctx)
}

// Signal validates the target and sends the signal in the background. Only
// processes of the current snapshot can be signalled, and the process is
// read again first so a reused PID is never hit. The outcome is reported by
// Poll.
func (m *Manager) Signal(ctx context.Context, pid int, kind model.SignalKind) error {
	if pid <= 0 {
		return model.NewPathError(model.ErrNotValid, pidPath(pid), nil)
	}
	if pid == m.selfPID || pid == 1 {
		return model.NewPathError(model.ErrProtected, pidPath(pid), nil)
	}
	snap, ok := m.find(pid)
	if !ok {
		return model.NewPathError(model.ErrNotFound, pidPath(pid), errors.New("not in the process list"))
	}
	if snap.KernelThread() {
		return model.NewPathError(model.ErrProtected, pidPath(pid), errors.New("kernel thread"))
	}

	m.logger.Infof("Sending %s to %d", kind, pid)
	f := task.Go(ctx, func(ctx context.Context) (struct{}, error) {
		if err := m.verify(ctx, snap); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, m.signaller.Signal(pid, kind)
	})
	m.signals = append(m.signals, pendingSignal{pid: pid, kind: kind, future: f})
	return nil
}

// verify runs off the UI goroutine and only touches immutable fields.
func (m *Manager) verify(ctx context.Context, snap model.ProcessInfo) error {
	live, err := m.inspector.Inspect(ctx, snap.PID)
	if err != nil {
		return err
	}
	if !snap.SameProcess(live) {
		return model.NewPathError(model.ErrNotFound, pidPath(snap.PID), errors.New("process was replaced"))
	}
	if live.KernelThread() {
		return model.NewPathError(model.ErrProtected, pidPath(snap.PID), errors.New("kernel thread"))
	}
	return nil
}

func (m *Manager) find(pid int) (model.ProcessInfo, bool) {
	for _, p := range m.procs {
		if p.PID == pid {
			return p, true
		}
	}
	return model.ProcessInfo{}, false
}

// Poll adopts finished background results. A failed refresh keeps the
// previous snapshot and is reported both as a notice and by Err.
func (m *Manager) Poll(ctx context.Context) []model.Notice {
	var notices []model.Notice

	if m.refreshing != nil {
		if procs, ok, err := m.refreshing.Poll(); ok {
			m.refreshing = nil
			if err != nil {
				m.err = err
				m.logger.Warningf("Could not list processes: %s", err)
				notices = append(notices, model.Notice{Err: err})
			} else {
				m.err = nil
				m.adopt(procs)
			}
		}
	}

	pending := m.signals[:0]
	signalled := false
	for _, s := range m.signals {
		_, ok, err := s.future.Poll()
		if !ok {
			pending = append(pending, s)
			continue
		}
		if err != nil {
			m.logger.Warningf("Could not send %s to %d: %s", s.kind, s.pid, err)
			notices = append(notices, model.Notice{Err: err})
			continue
		}
		signalled = true
		notices = append(notices, model.Notice{Text: fmt.Sprintf("Sent %s to %d", s.kind, s.pid)})
	}
	m.signals = pending

	if signalled {
		m.Refresh(ctx)
	}
	return notices
}

// Wait blocks until every background job has finished. Used on shutdown and in tests.
func (m *Manager) Wait(ctx context.Context) error {
	var pending []<-chan struct{}
	if m.refreshing != nil {
		pending = append(pending, m.refreshing.Done())
	}
	for _, s := range m.signals {
		pending = append(pending, s.future.Done())
	}

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Manager) adopt(procs []model.ProcessInfo) {
	selected, hadSelection := m.Selected()
	m.procs = procs
	m.sort()

	m.cursor = 0
	if hadSelection {
		for i, p := range m.procs {
			if p.PID == selected.PID {
				m.cursor = i
				break
			}
		}
	}
	m.clamp()
}

// Processes returns the current snapshot in display order.
func (m *Manager) Processes() []model.ProcessInfo { return m.procs }

// Err returns the error of the last refresh, if it failed.
func (m *Manager) Err() error { return m.err }

// Sort returns the current sort key and direction.
func (m *Manager) Sort() (SortKey, bool) { return m.sortKey, m.ascending }

// SetSort sorts by key. Selecting the current key again flips the direction.
func (m *Manager) SetSort(key SortKey) {
	if key == m.sortKey {
		m.ascending = !m.ascending
	} else {
		m.sortKey = key
		m.ascending = key.defaultAscending()
	}

	selected, ok := m.Selected()
	m.sort()
	if ok {
		for i, p := range m.procs {
			if p.PID == selected.PID {
				m.cursor = i
			}
		}
	}
}

func (m *Manager) sort() {
	key, asc := m.sortKey, m.ascending
	sort.SliceStable(m.procs, func(i, j int) bool {
		a, b := m.procs[i], m.procs[j]
		var c int
		switch key {
		case SortCPU:
			c = compareFloat(a.CPU, b.CPU)
		case SortMem:
			c = compareFloat(a.Mem, b.Mem)
			if c == 0 {
				c = compareFloat(float64(a.RSS), float64(b.RSS))
			}
		case SortName:
			c = strings.Compare(strings.ToLower(a.Command), strings.ToLower(b.Command))
		}
		if !asc {
			c = -c
		}
		if c == 0 {
			// PID is the tie breaker and the PID column itself.
			c = a.PID - b.PID
			if key == SortPID && !asc {
				c = -c
			}
		}
		return c < 0
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Cursor returns the cursor index in the snapshot.
func (m *Manager) Cursor() int { return m.cursor }

// Selected returns the process under the cursor.
func (m *Manager) Selected() (model.ProcessInfo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.procs) {
		return model.ProcessInfo{}, false
	}
	return m.procs[m.cursor], true
}

// MoveCursor moves the cursor by delta rows, clamped to the snapshot.
func (m *Manager) MoveCursor(delta int) {
	m.cursor += delta
	m.clamp()
}

// Home moves the cursor to the first row.
func (m *Manager) Home() { m.cursor = 0 }

// End moves the cursor to the last row.
func (m *Manager) End() {
	m.cursor = len(m.procs) - 1
	m.clamp()
}

func (m *Manager) clamp() {
	if m.cursor >= len(m.procs) {
		m.cursor = len(m.procs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
