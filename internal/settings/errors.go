package settings

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a recipient that was expected to exist. In the normal
// flow every entry point calls EnsureRecipient first, so seeing this error
// usually means a missed ensure call.
var ErrNotFound = errors.New("recipient not found")

// ValidationError reports bad user input. Its message is user-visible.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StorageError wraps a persistence-layer fault. Callers log it and report the
// operation as failed; it never crashes the process.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "settings: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
