package bank

import (
	"context"
	"fmt"
	"strings"
)

// Plugin is a storage backend. Keys are slash separated, without a leading
// slash.
type Plugin interface {
	// CreateObject stores value under key, failing with ErrObjectExists if
	// the key is already present. Readers never observe a partial value.
	CreateObject(ctx context.Context, key string, value []byte) error
	// UpdateObject stores value under key, creating it if needed.
	UpdateObject(ctx context.Context, key string, value []byte) error
	// GetObject returns the value of key or ErrObjectNotFound.
	GetObject(ctx context.Context, key string) ([]byte, error)
	// DeleteObject removes key. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, key string) error
	// ListObjects returns every key starting with prefix, sorted.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// ValidateKey rejects keys that cannot be mapped safely onto every backend.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("bank key must not be empty")
	}
	if strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("bank key %q must not start or end with '/'", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("bank key %q contains an invalid segment %q", key, segment)
		}
	}
	return nil
}
