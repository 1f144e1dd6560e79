package model

import "fmt"

// TaskKind is the closed set of file operations.
type TaskKind int

const (
	TaskKindCopy TaskKind = iota
	TaskKindMove
	TaskKindDelete
	TaskKindRename
	TaskKindMkdir
)

func (k TaskKind) String() string {
	switch k {
	case TaskKindCopy:
		return "copy"
	case TaskKindMove:
		return "move"
	case TaskKindDelete:
		return "delete"
	case TaskKindRename:
		return "rename"
	case TaskKindMkdir:
		return "mkdir"
	default:
		return fmt.Sprintf("TaskKind(%d)", int(k))
	}
}

// ConflictPolicy decides what happens when a destination already exists.
// It is fixed for the whole task.
type ConflictPolicy int

const (
	ConflictFailFast ConflictPolicy = iota
	ConflictOverwrite
	ConflictSkip
)

func (p ConflictPolicy) String() string {
	switch p {
	case ConflictOverwrite:
		return "overwrite"
	case ConflictSkip:
		return "skip"
	default:
		return "fail-fast"
	}
}

// Next returns the following policy, used to cycle through them.
func (p ConflictPolicy) Next() ConflictPolicy {
	switch p {
	case ConflictFailFast:
		return ConflictOverwrite
	case ConflictOverwrite:
		return ConflictSkip
	default:
		return ConflictFailFast
	}
}

// ParseConflictPolicy parses the textual form of a policy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch s {
	case "fail-fast", "fail", "":
		return ConflictFailFast, nil
	case "overwrite":
		return ConflictOverwrite, nil
	case "skip":
		return ConflictSkip, nil
	}
	return ConflictFailFast, fmt.Errorf("unknown conflict policy %q: %w", s, ErrNotValid)
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus int

const (
	TaskStatusRunning TaskStatus = iota
	TaskStatusSucceeded
	TaskStatusFailed
	TaskStatusCancelled
)

func (s TaskStatus) String() string {
	switch s {
	case TaskStatusSucceeded:
		return "succeeded"
	case TaskStatusFailed:
		return "failed"
	case TaskStatusCancelled:
		return "cancelled"
	default:
		return "running"
	}
}

// Terminal reports whether no further progress updates will happen.
func (s TaskStatus) Terminal() bool { return s != TaskStatusRunning }

// TaskRequest is what gets submitted to the file operation engine.
type TaskRequest struct {
	Kind    TaskKind
	Sources []string
	// Destination is the target directory for copy/move, the new path (or
	// name) for rename and the directory to create for mkdir.
	Destination string
	Policy      ConflictPolicy
}

// Progress is the progress record of a task.
type Progress struct {
	Kind       TaskKind
	TotalFiles int
	DoneFiles  int
	TotalBytes int64
	DoneBytes  int64
	Skipped    int
	// Current is the item being processed, LastItem the last one attempted.
	Current  string
	LastItem string
	Status   TaskStatus
	Err      error
}

// Fraction returns the completed share of the task, by bytes when known.
func (p Progress) Fraction() float64 {
	if p.Status == TaskStatusSucceeded {
		return 1
	}
	if p.TotalBytes > 0 {
		return float64(p.DoneBytes) / float64(p.TotalBytes)
	}
	if p.TotalFiles > 0 {
		return float64(p.DoneFiles) / float64(p.TotalFiles)
	}
	return 0
}
