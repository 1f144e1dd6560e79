package panel

import (
	"sort"
	"strings"

	"github.com/kstost/cokacdir/internal/model"
)

// SortKey is the column a panel is sorted by.
type SortKey int

const (
	SortName SortKey = iota
	SortSize
	SortDate
)

func (k SortKey) String() string {
	switch k {
	case SortSize:
		return "size"
	case SortDate:
		return "date"
	default:
		return "name"
	}
}

// sortEntries orders entries in place: ".." first, directories pinned
// before files, then by key. Directories count as zero bytes and date
// ascending means newest first. Ties are broken by name.
func sortEntries(entries []model.DirectoryEntry, key SortKey, ascending bool) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Parent != b.Parent {
			return a.Parent
		}
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}

		var c int
		switch key {
		case SortSize:
			c = compareInt64(sizeOf(a), sizeOf(b))
		case SortDate:
			c = -compareInt64(a.ModTime.UnixNano(), b.ModTime.UnixNano())
		default:
			c = compareNames(a.Name, b.Name)
		}
		if !ascending {
			c = -c
		}
		if c == 0 {
			c = compareNames(a.Name, b.Name)
		}
		return c < 0
	})
}

func compareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func sizeOf(e model.DirectoryEntry) int64 {
	if e.IsDir() {
		return 0
	}
	return e.Size
}
