package bank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Options are backend specific settings taken from a provider config.
type Options map[string]string

// Get returns the option value or def when unset.
func (o Options) Get(name, def string) string {
	if v, ok := o[name]; ok && v != "" {
		return v
	}
	return def
}

// Factory constructs a backend.
type Factory func(ctx context.Context, opts Options) (Plugin, error)

// Backend is implemented by every backend package so it can be added to a
// Table at start-up.
type Backend interface {
	Register(t *Table)
}

// Table maps backend identifiers to constructors.
type Table struct {
	factories map[string]Factory
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{factories: make(map[string]Factory)}
}

// Register adds a backend constructor under name.
func (t *Table) Register(name string, f Factory) {
	if _, exists := t.factories[name]; exists {
		panic(fmt.Sprintf("bank backend with name '%s' already registered", name))
	}
	slog.Debug("Registering bank backend.", "name", name)
	t.factories[name] = f
}

// Open constructs the backend registered under name.
func (t *Table) Open(ctx context.Context, name string, opts Options) (Plugin, error) {
	f, ok := t.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown bank backend %q", name)
	}
	p, err := f(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open bank backend %q: %w", name, err)
	}
	return p, nil
}

// Names returns the registered identifiers, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.factories))
	for name := range t.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
