package model

import (
	"io/fs"
	"time"
)

// ParentName is the display name of the synthetic parent entry.
const ParentName = ".."

// EntryKind is the kind of a filesystem object.
type EntryKind int

const (
	EntryKindFile EntryKind = iota
	EntryKindDir
	EntryKindSymlink
)

func (k EntryKind) String() string {
	switch k {
	case EntryKindDir:
		return "dir"
	case EntryKindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// DirectoryEntry is an immutable snapshot of one filesystem object.
type DirectoryEntry struct {
	Path    string
	Name    string
	Kind    EntryKind
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
	// LinkToDir is set on symlinks whose target is a directory.
	LinkToDir bool
	// Parent marks the synthetic ".." entry.
	Parent bool
}

// IsDir reports whether the entry can be navigated into.
func (e DirectoryEntry) IsDir() bool {
	return e.Kind == EntryKindDir || (e.Kind == EntryKindSymlink && e.LinkToDir)
}

// DirUsage is the recursive content of a directory. Symlinks are counted,
// never followed.
type DirUsage struct {
	Files int
	Dirs  int
	Bytes int64
	// Unreadable counts subdirectories that could not be listed.
	Unreadable int
}

// SearchResult is the outcome of a recursive name search under Root.
type SearchResult struct {
	Root string
	Term string
	// Matches are in walk order. Their Name is the path relative to Root.
	Matches   []DirectoryEntry
	Truncated bool
}
