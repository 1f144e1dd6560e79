// Package task holds the concurrency primitives shared by the background
// workers: progress trackers, cancellation tokens, path locks and futures.
package task

import (
	"sync"

	"github.com/kstost/cokacdir/internal/model"
)

// Tracker is the progress record of one task. The worker is the only writer;
// the UI reads snapshots at its own pace.
type Tracker struct {
	mu       sync.Mutex
	progress model.Progress
	changed  chan struct{}
	done     chan struct{}
}

// NewTracker returns a running tracker for a task of the given kind.
func NewTracker(kind model.TaskKind) *Tracker {
	return &Tracker{
		progress: model.Progress{Kind: kind, Status: model.TaskStatusRunning},
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() model.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Changed is signalled (coalesced) every time the progress changes.
func (t *Tracker) Changed() <-chan struct{} { return t.changed }

// Done is closed once the task reaches a terminal status.
func (t *Tracker) Done() <-chan struct{} { return t.done }

// SetTotals records the pre-flight totals.
func (t *Tracker) SetTotals(files int, bytes int64) {
	t.update(func(p *model.Progress) {
		p.TotalFiles = max(p.TotalFiles, files)
		p.TotalBytes = max(p.TotalBytes, bytes)
	})
}

// Start records the item that is about to be processed.
func (t *Tracker) Start(item string) {
	t.update(func(p *model.Progress) {
		p.Current = item
		p.LastItem = item
	})
}

// Advance adds completed files and bytes. Negative deltas are ignored so
// counts never decrease.
func (t *Tracker) Advance(files int, bytes int64) {
	t.update(func(p *model.Progress) {
		p.DoneFiles += max(files, 0)
		p.DoneBytes += max(bytes, 0)
	})
}

// Skip adds completed files that were left untouched because of the conflict policy.
func (t *Tracker) Skip(files int, bytes int64) {
	t.update(func(p *model.Progress) {
		p.Skipped += max(files, 0)
		p.DoneFiles += max(files, 0)
		p.DoneBytes += max(bytes, 0)
	})
}

// Finish moves the task to a terminal status. Only the first call has effect.
func (t *Tracker) Finish(status model.TaskStatus, err error) bool {
	t.mu.Lock()
	if t.progress.Status.Terminal() || !status.Terminal() {
		t.mu.Unlock()
		return false
	}
	t.progress.Status = status
	t.progress.Err = err
	t.progress.Current = ""
	t.mu.Unlock()

	close(t.done)
	t.notify()
	return true
}

func (t *Tracker) update(fn func(p *model.Progress)) {
	t.mu.Lock()
	if t.progress.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	fn(&t.progress)
	t.mu.Unlock()
	t.notify()
}

func (t *Tracker) notify() {
	select {
	case t.changed <- struct{}{}:
	default:
	}
}
