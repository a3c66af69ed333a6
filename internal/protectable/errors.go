package protectable

import (
	"errors"
	"fmt"
)

// ErrPluginNotFound matches every *PluginNotFoundError.
var ErrPluginNotFound = errors.New("plugin not found")

// PluginNotFoundError is returned when no plugin handles a resource type.
type PluginNotFoundError struct {
	Type string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("no protectable plugin registered for resource type '%s'", e.Type)
}

func (e *PluginNotFoundError) Is(target error) bool {
	return target == ErrPluginNotFound
}

// ListProtectableResourceFailedError is returned by plugins when the
// underlying cloud lookup fails.
type ListProtectableResourceFailedError struct {
	Type   string
	Reason string
	Err    error
}

func (e *ListProtectableResourceFailedError) Error() string {
	return fmt.Sprintf("failed to list protectable resources of type '%s': %s", e.Type, e.Reason)
}

func (e *ListProtectableResourceFailedError) Unwrap() error {
	return e.Err
}

// NewListFailed wraps a lookup failure for resource type t.
func NewListFailed(t string, err error) *ListProtectableResourceFailedError {
	return &ListProtectableResourceFailedError{Type: t, Reason: err.Error(), Err: err}
}
