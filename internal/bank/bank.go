package bank

import (
	"context"
	"strings"
)

// Bank is a namespaced view over a Plugin. All keys passed to and returned
// from a Bank are relative to its namespace.
type Bank struct {
	plugin    Plugin
	namespace string
}

// New creates a bank rooted at namespace. An empty namespace exposes the
// whole backend.
func New(p Plugin, namespace string) *Bank {
	return &Bank{plugin: p, namespace: strings.Trim(namespace, "/")}
}

// Plugin returns the backend behind the bank.
func (b *Bank) Plugin() Plugin {
	return b.plugin
}

// Namespace returns the absolute prefix of this bank.
func (b *Bank) Namespace() string {
	return b.namespace
}

// Section returns a bank nested under sub.
func (b *Bank) Section(sub string) *Bank {
	return &Bank{plugin: b.plugin, namespace: b.abs(strings.Trim(sub, "/"))}
}

func (b *Bank) abs(key string) string {
	if b.namespace == "" {
		return key
	}
	if key == "" {
		return b.namespace
	}
	return b.namespace + "/" + key
}

func (b *Bank) checked(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return b.abs(key), nil
}

// CreateObject stores a new object; see Plugin.CreateObject.
func (b *Bank) CreateObject(ctx context.Context, key string, value []byte) error {
	full, err := b.checked(key)
	if err != nil {
		return err
	}
	return b.plugin.CreateObject(ctx, full, value)
}

// UpdateObject upserts an object; see Plugin.UpdateObject.
func (b *Bank) UpdateObject(ctx context.Context, key string, value []byte) error {
	full, err := b.checked(key)
	if err != nil {
		return err
	}
	return b.plugin.UpdateObject(ctx, full, value)
}

// GetObject reads an object; see Plugin.GetObject.
func (b *Bank) GetObject(ctx context.Context, key string) ([]byte, error) {
	full, err := b.checked(key)
	if err != nil {
		return nil, err
	}
	return b.plugin.GetObject(ctx, full)
}

// DeleteObject removes an object; see Plugin.DeleteObject.
func (b *Bank) DeleteObject(ctx context.Context, key string) error {
	full, err := b.checked(key)
	if err != nil {
		return err
	}
	return b.plugin.DeleteObject(ctx, full)
}

// ListObjects lists keys under prefix, relative to this bank. An empty
// prefix lists the whole section.
func (b *Bank) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	base := ""
	if b.namespace != "" {
		base = b.namespace + "/"
	}
	keys, err := b.plugin.ListObjects(ctx, base+prefix)
	if err != nil {
		return nil, err
	}
	rel := make([]string, 0, len(keys))
	for _, k := range keys {
		rel = append(rel, strings.TrimPrefix(k, base))
	}
	return rel, nil
}
