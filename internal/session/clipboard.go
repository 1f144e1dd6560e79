package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/kstost/cokacdir/internal/fileops"
	"github.com/kstost/cokacdir/internal/model"
)

// Clipboard holds paths copied or cut from a panel until they are pasted.
type Clipboard struct {
	// Op is OpCopy or OpMove.
	Op     Op
	Paths  []string
	Source string
}

// ClipboardCopy puts the active panel targets on the clipboard for a copy.
func (s *Session) ClipboardCopy() (int, error) { return s.clip(OpCopy) }

// ClipboardCut puts the active panel targets on the clipboard for a move.
func (s *Session) ClipboardCut() (int, error) { return s.clip(OpMove) }

func (s *Session) clip(op Op) (int, error) {
	targets := s.Active().Targets()
	if len(targets) == 0 {
		return 0, fmt.Errorf("nothing selected: %w", model.ErrNotValid)
	}
	c := &Clipboard{Op: op, Source: s.Active().Path()}
	for _, e := range targets {
		c.Paths = append(c.Paths, e.Path)
	}
	s.clipboard = c
	s.Active().ClearSelection()
	return len(c.Paths), nil
}

// Clipboard returns the clipboard content.
func (s *Session) Clipboard() (Clipboard, bool) {
	if s.clipboard == nil {
		return Clipboard{}, false
	}
	return *s.clipboard, true
}

// Paste copies or moves the clipboard paths into the active panel
// directory. A copy can be pasted again, a cut is emptied once submitted.
// Paths that would land inside themselves are left out.
func (s *Session) Paste(ctx context.Context) (*fileops.Handle, error) {
	c := s.clipboard
	if c == nil {
		return nil, fmt.Errorf("clipboard is empty: %w", model.ErrNotValid)
	}
	dst := s.Active().Path()
	if dst == c.Source {
		return nil, model.NewPathError(model.ErrNotValid, dst, errors.New("source and target are the same folder"))
	}
	if _, err := s.Active().FS().Stat(c.Source); err != nil {
		s.clipboard = nil
		return nil, model.Classify(c.Source, err)
	}

	var paths []string
	for _, p := range c.Paths {
		if !within(dst, p) {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, model.NewPathError(model.ErrNotValid, dst, errors.New("cannot paste a directory into itself"))
	}

	h, err := s.Apply(ctx, Intent{Op: c.Op, Paths: paths, Destination: dst})
	if err != nil {
		return nil, err
	}
	if c.Op == OpMove {
		s.clipboard = nil
	}
	return h, nil
}
