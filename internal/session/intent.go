package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kstost/cokacdir/internal/fileops"
	"github.com/kstost/cokacdir/internal/model"
)

// Op is the operation of an intent.
type Op string

const (
	OpCopy   Op = "copy"
	OpMove   Op = "move"
	OpDelete Op = "delete"
	OpRename Op = "rename"
	OpMkdir  Op = "mkdir"
)

// Intent is a structured file operation request, as typed keys or as
// returned by the command bridge. Empty Paths mean the active panel
// targets, an empty Destination means the inactive panel directory.
// Relative paths are resolved against the active panel.
type Intent struct {
	Op          Op       `json:"op" yaml:"op"`
	Paths       []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	Destination string   `json:"destination,omitempty" yaml:"destination,omitempty"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
}

// Context is what the command bridge knows about the session.
type Context struct {
	ActivePath   string   `json:"active_path"`
	InactivePath string   `json:"inactive_path"`
	Selection    []string `json:"selection"`
	Cursor       string   `json:"cursor,omitempty"`
}

// Context returns the bridge view of the session.
func (s *Session) Context() Context {
	c := Context{
		ActivePath:   s.Active().Path(),
		InactivePath: s.Inactive().Path(),
	}
	for _, e := range s.Active().Selected() {
		c.Selection = append(c.Selection, e.Path)
	}
	if cur, ok := s.Active().Current(); ok && !cur.Parent {
		c.Cursor = cur.Path
	}
	return c
}

// Apply turns an intent into a file task and submits it.
func (s *Session) Apply(ctx context.Context, in Intent) (*fileops.Handle, error) {
	req, fromPanel, err := s.request(in)
	if err != nil {
		return nil, err
	}
	h, err := s.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if fromPanel {
		s.Active().ClearSelection()
	}
	return h, nil
}

func (s *Session) request(in Intent) (req model.TaskRequest, fromPanel bool, err error) {
	req.Policy = s.policy

	paths := make([]string, 0, len(in.Paths))
	for _, p := range in.Paths {
		paths = append(paths, s.resolve(p))
	}
	targets := func() ([]string, error) {
		if len(paths) > 0 {
			return paths, nil
		}
		fromPanel = true
		var out []string
		for _, e := range s.Active().Targets() {
			out = append(out, e.Path)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("nothing selected: %w", model.ErrNotValid)
		}
		return out, nil
	}

	switch in.Op {
	case OpCopy, OpMove:
		req.Kind = model.TaskKindCopy
		if in.Op == OpMove {
			req.Kind = model.TaskKindMove
		}
		if req.Sources, err = targets(); err != nil {
			return req, false, err
		}
		req.Destination = s.Inactive().Path()
		if in.Destination != "" {
			req.Destination = s.resolve(in.Destination)
		}
	case OpDelete:
		req.Kind = model.TaskKindDelete
		if req.Sources, err = targets(); err != nil {
			return req, false, err
		}
	case OpRename:
		req.Kind = model.TaskKindRename
		if req.Sources, err = targets(); err != nil {
			return req, false, err
		}
		if len(req.Sources) != 1 {
			return req, false, fmt.Errorf("rename needs exactly one path: %w", model.ErrNotValid)
		}
		if err := fileops.ValidateFilename(in.Name); err != nil {
			return req, false, err
		}
		req.Destination = in.Name
	case OpMkdir:
		req.Kind = model.TaskKindMkdir
		if err := fileops.ValidateFilename(in.Name); err != nil {
			return req, false, err
		}
		parent := s.Active().Path()
		if in.Destination != "" {
			parent = s.resolve(in.Destination)
		}
		req.Destination = filepath.Join(parent, in.Name)
	default:
		return req, false, fmt.Errorf("unknown operation %q: %w", in.Op, model.ErrNotValid)
	}
	return req, fromPanel, nil
}

func (s *Session) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.Active().Path(), path)
}
