package protection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/protectgrid/internal/resource"
)

// Plugin contributes protect, restore and delete tasks for the resource
// types it supports.
type Plugin interface {
	// Name is the identifier used in provider configs.
	Name() string
	SupportedTypes() []string
	// ContributeTask adds the task for r to c's flow and returns its id.
	ContributeTask(ctx context.Context, c *ResourceGraphContext, r resource.Resource) (string, error)
	// WireDependency orders the tasks of parent and child, where child is a
	// structural dependent of parent. It is called once per graph edge
	// visit on the parent's plugin.
	WireDependency(c *ResourceGraphContext, parent, child resource.Key) error

	// OptionsSchema, RestoreSchema and SavedInfoSchema report parameter and
	// result schemas for a type. The boolean is false when the plugin
	// declares none.
	OptionsSchema(resourceType string) (Schema, bool)
	RestoreSchema(resourceType string) (Schema, bool)
	SavedInfoSchema(resourceType string) (Schema, bool)
}

// NoSchemas can be embedded by plugins that declare no schemas.
type NoSchemas struct{}

func (NoSchemas) OptionsSchema(string) (Schema, bool)   { return Schema{}, false }
func (NoSchemas) RestoreSchema(string) (Schema, bool)   { return Schema{}, false }
func (NoSchemas) SavedInfoSchema(string) (Schema, bool) { return Schema{}, false }

// ExtendedInfoSchema holds the schemas of every supported type, resolved once
// when a provider is built. Types without a declared schema map to the
// empty schema.
type ExtendedInfoSchema struct {
	Options   map[string]Schema
	Restore   map[string]Schema
	SavedInfo map[string]Schema
}

func newExtendedInfoSchema() ExtendedInfoSchema {
	return ExtendedInfoSchema{
		Options:   make(map[string]Schema),
		Restore:   make(map[string]Schema),
		SavedInfo: make(map[string]Schema),
	}
}

func (s ExtendedInfoSchema) add(p Plugin, resourceType string) {
	resolve := func(get func(string) (Schema, bool)) Schema {
		if schema, ok := get(resourceType); ok {
			return schema
		}
		return EmptySchema()
	}
	s.Options[resourceType] = resolve(p.OptionsSchema)
	s.Restore[resourceType] = resolve(p.RestoreSchema)
	s.SavedInfo[resourceType] = resolve(p.SavedInfoSchema)
}

// PluginTable maps plugin names to constructors.
type PluginTable struct {
	factories map[string]func() Plugin
}

// NewPluginTable creates an empty table.
func NewPluginTable() *PluginTable {
	return &PluginTable{factories: make(map[string]func() Plugin)}
}

// Register adds a plugin constructor under name. It panics on duplicates.
func (t *PluginTable) Register(name string, f func() Plugin) {
	if _, exists := t.factories[name]; exists {
		panic(fmt.Sprintf("protection plugin with name '%s' already registered", name))
	}
	slog.Debug("Registering protection plugin.", "name", name)
	t.factories[name] = f
}

// New constructs the plugin registered under name.
func (t *PluginTable) New(name string) (Plugin, error) {
	f, ok := t.factories[name]
	if !ok {
		return nil, &PluginNotFoundError{Name: name}
	}
	return f(), nil
}

// Names returns registered names, sorted.
func (t *PluginTable) Names() []string {
	names := make([]string, 0, len(t.factories))
	for name := range t.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
