package record

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// StorageError wraps an attachment-store failure. Upload failures are fatal
// to the calling operation; delete failures are logged and swallowed.
type StorageError struct {
	Op  string // "upload" or "delete"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("attachment %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError reports a malformed request field, rejected before any
// store call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
