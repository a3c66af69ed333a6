package bank

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectNotFound is returned when a key does not exist. It is an
	// expected outcome, not a backend failure.
	ErrObjectNotFound = errors.New("bank object not found")
	// ErrObjectExists is returned by CreateObject when the key is taken.
	ErrObjectExists = errors.New("bank object already exists")
)

// IOError wraps a backend failure. Transient marks failures worth retrying
// (throttling, 5xx, connection resets).
type IOError struct {
	Op        string
	Key       string
	Transient bool
	Err       error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("bank %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError builds an IOError for op on key.
func NewIOError(op, key string, transient bool, err error) *IOError {
	return &IOError{Op: op, Key: key, Transient: transient, Err: err}
}

// IsTransient reports whether err is a retryable backend failure.
func IsTransient(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr) && ioErr.Transient
}
