package task

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/kstost/cokacdir/internal/model"
)

// PathLocks guarantees that at most one active task works on a given
// top-level path. Paths overlap when equal or when one contains the other.
type PathLocks struct {
	mu   sync.Mutex
	held map[string]int
}

// NewPathLocks returns an empty lock set.
func NewPathLocks() *PathLocks {
	return &PathLocks{held: map[string]int{}}
}

// Acquire locks all paths at once or none. It fails with model.ErrBusy when
// any of them overlaps a held path.
func (l *PathLocks) Acquire(paths ...string) (release func(), err error) {
	clean := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean = append(clean, filepath.Clean(p))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range clean {
		for h := range l.held {
			if overlaps(p, h) {
				return nil, model.NewPathError(model.ErrBusy, p, nil)
			}
		}
	}
	for _, p := range clean {
		l.held[p]++
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for _, p := range clean {
				l.held[p]--
				if l.held[p] <= 0 {
					delete(l.held, p)
				}
			}
		})
	}, nil
}

// Held returns the number of locked paths.
func (l *PathLocks) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

func overlaps(a, b string) bool {
	return a == b || within(a, b) || within(b, a)
}

func within(child, parent string) bool {
	if parent == string(filepath.Separator) {
		return strings.HasPrefix(child, parent)
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}
