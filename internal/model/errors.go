package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

var (
	// ErrNotFound is returned when a path or process does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when the OS refuses access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAlreadyExists is returned when a target already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotADirectory is returned when a directory was expected.
	ErrNotADirectory = errors.New("not a directory")
	// ErrBusy is returned when another active task works on the same paths.
	ErrBusy = errors.New("busy")
	// ErrIOFailure is returned on disk full, hardware and other I/O errors.
	ErrIOFailure = errors.New("i/o failure")
	// ErrCancelled is returned when an operation has been cancelled.
	ErrCancelled = errors.New("cancelled")
	// ErrNotValid is returned when an argument is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrProtected is returned when the target is a protected system path or process.
	ErrProtected = errors.New("protected")
)

// PathError is a classified error about a single path (or PID rendered as a path).
type PathError struct {
	Kind error
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil || errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	// Only the innermost OS reason, never the whole wrapped chain.
	reason := e.Err
	for {
		u := errors.Unwrap(reason)
		if u == nil {
			break
		}
		reason = u
	}
	if reason.Error() == e.Kind.Error() {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Kind, reason)
}

func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPathError returns a classified error for path.
func NewPathError(kind error, path string, err error) error {
	return &PathError{Kind: kind, Path: path, Err: err}
}

// Kind returns the taxonomy sentinel of err, nil when err is nil.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return ErrCancelled
	case errors.Is(err, ErrBusy):
		return ErrBusy
	case errors.Is(err, ErrProtected):
		return ErrProtected
	case errors.Is(err, ErrNotValid):
		return ErrNotValid
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return ErrNotFound
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, fs.ErrExist), errors.Is(err, unix.ENOTEMPTY):
		return ErrAlreadyExists
	case errors.Is(err, ErrNotADirectory), errors.Is(err, unix.ENOTDIR):
		return ErrNotADirectory
	default:
		return ErrIOFailure
	}
}

// Classify maps an OS error about path onto the error taxonomy. Already
// classified errors are returned untouched.
func Classify(path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return NewPathError(Kind(err), path, err)
}
