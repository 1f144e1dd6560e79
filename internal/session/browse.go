package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/panel"
	"github.com/kstost/cokacdir/internal/task"
)

// Goto opens path in the active panel, or its nearest listable ancestor,
// and returns the directory opened. "~" expands to the home directory and
// relative paths start at the active panel.
func (s *Session) Goto(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path: %w", model.ErrNotValid)
	}
	exp, err := homedir.Expand(path)
	if err != nil {
		return "", model.NewPathError(model.ErrNotValid, path, err)
	}
	target := s.resolve(exp)

	got, err := s.Active().Goto(target)
	if err != nil {
		return "", err
	}
	if got != target {
		s.logger.Debugf("Goto %s opened %s", target, got)
	}
	return got, nil
}

// Info describes the entry under the cursor. For directories the returned
// future adds up their content in the background, it is nil otherwise.
func (s *Session) Info(ctx context.Context) (model.DirectoryEntry, *task.Future[model.DirUsage], error) {
	p := s.Active()
	e, err := p.Info()
	if err != nil {
		return e, nil, err
	}
	if e.Kind != model.EntryKindDir {
		return e, nil, nil
	}
	fsys := p.FS()
	return e, task.Go(ctx, func(ctx context.Context) (model.DirUsage, error) {
		return panel.DirUsage(ctx, fsys, e.Path)
	}), nil
}

// Search looks for names containing term under the active panel directory
// in the background.
func (s *Session) Search(ctx context.Context, term string) (*task.Future[model.SearchResult], error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("empty search term: %w", model.ErrNotValid)
	}
	p := s.Active()
	fsys, root := p.FS(), p.Path()
	s.logger.Debugf("Searching %q under %s", term, root)
	return task.Go(ctx, func(ctx context.Context) (model.SearchResult, error) {
		return panel.Search(ctx, fsys, root, term, panel.MaxSearchResults)
	}), nil
}

// Reveal shows a search match in the active panel.
func (s *Session) Reveal(e model.DirectoryEntry) error {
	return s.Active().Reveal(e)
}

// within reports whether path is parent itself or lives under it.
func within(path, parent string) bool {
	return path == parent || strings.HasPrefix(path, parent+string(filepath.Separator))
}
