package filesystem

import (
	"errors"
	"fmt"

	"github.com/brettbedarf/minifs/storage"
)

var (
	// ErrNotFound occurs when a name lookup within one directory misses.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists occurs when a file or directory name is already taken
	// by a sibling of the same kind.
	ErrAlreadyExists = errors.New("already exists")

	// ErrCapacityExceeded occurs when a directory child set or a file block
	// list is full.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrOutOfSpace occurs when the block store cannot supply enough blocks.
	ErrOutOfSpace = storage.ErrOutOfSpace

	// ErrPermissionDenied occurs when the acting user class lacks the mode bit
	// required by an operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidMode occurs when a mode is outside 0-777 or has a digit above 7.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidName occurs for empty names, "." and "..", and names holding a
	// path separator.
	ErrInvalidName = errors.New("invalid name")

	// ErrFileTooLarge is a short write: content beyond the block list
	// capacity was dropped. It matches [ErrCapacityExceeded].
	ErrFileTooLarge = fmt.Errorf("file too large: %w", ErrCapacityExceeded)

	// ErrChecksumMismatch occurs when a copy does not read back identical to
	// its source.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// OpError records a failed operation with the name it acted on.
type OpError struct {
	Op   string
	Name string
	Err  error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

func opErr(op, name string, err error) error {
	return &OpError{Op: op, Name: name, Err: err}
}
