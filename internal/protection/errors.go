package protection

import (
	"errors"
	"fmt"
)

var (
	// ErrPluginNotFound matches every *PluginNotFoundError.
	ErrPluginNotFound = errors.New("protection plugin not found")
	// ErrProviderNotFound is returned for unknown provider ids.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrInvalidRequest is returned for flow requests missing required
	// fields.
	ErrInvalidRequest = errors.New("invalid flow request")
)

// PluginNotFoundError is returned when no protection plugin handles a
// resource type, or when a configured plugin name is unknown.
type PluginNotFoundError struct {
	Type string
	Name string
}

func (e *PluginNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("protection plugin '%s' is not registered", e.Name)
	}
	return fmt.Sprintf("no protection plugin bound to resource type '%s'", e.Type)
}

func (e *PluginNotFoundError) Is(target error) bool {
	return target == ErrPluginNotFound
}
