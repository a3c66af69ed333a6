package checkpoint

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckpointNotFound is returned when the metadata object of a
	// checkpoint does not exist.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrInvalidState is returned when an operation is not allowed in the
	// checkpoint's current status.
	ErrInvalidState = errors.New("invalid checkpoint state")
)

// InvalidStateError describes a rejected status transition.
type InvalidStateError struct {
	ID   string
	From Status
	To   Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("checkpoint %s cannot move from '%s' to '%s'", e.ID, e.From, e.To)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}
