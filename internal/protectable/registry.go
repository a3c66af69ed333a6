package protectable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/resourcegraph"
)

// Registry holds one discovery plugin per resource type.
type Registry struct {
	plugins map[string]Plugin
	// byParent maps a parent type to the plugins that list it, in
	// registration order.
	byParent map[string][]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:  make(map[string]Plugin),
		byParent: make(map[string][]Plugin),
	}
}

// Register adds p. It panics if a plugin for the same type is registered.
func (r *Registry) Register(p Plugin) {
	t := p.ResourceType()
	if _, exists := r.plugins[t]; exists {
		panic(fmt.Sprintf("protectable plugin for type '%s' already registered", t))
	}
	slog.Debug("Registering protectable plugin.", "type", t, "parents", p.ParentTypes())
	r.plugins[t] = p
	for _, parent := range p.ParentTypes() {
		r.byParent[parent] = append(r.byParent[parent], p)
	}
}

// Plugin returns the plugin for resource type t.
func (r *Registry) Plugin(t string) (Plugin, error) {
	p, ok := r.plugins[t]
	if !ok {
		return nil, &PluginNotFoundError{Type: t}
	}
	return p, nil
}

// ListResourceTypes returns the registered types, sorted.
func (r *Registry) ListResourceTypes() []string {
	types := make([]string, 0, len(r.plugins))
	for t := range r.plugins {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ShowProtectableType describes type t and the types that depend on it.
func (r *Registry) ShowProtectableType(t string) (Type, error) {
	if _, err := r.Plugin(t); err != nil {
		return Type{}, err
	}
	dependents := []string{}
	for _, p := range r.byParent[t] {
		dependents = append(dependents, p.ResourceType())
	}
	sort.Strings(dependents)
	return Type{Name: t, DependentTypes: dependents}, nil
}

// ListResources lists all resources of type t.
func (r *Registry) ListResources(ctx context.Context, t string) ([]resource.Resource, error) {
	p, err := r.Plugin(t)
	if err != nil {
		return nil, err
	}
	return p.ListResources(ctx)
}

// ShowResource returns one resource of type t.
func (r *Registry) ShowResource(ctx context.Context, t, id string) (resource.Resource, error) {
	p, err := r.Plugin(t)
	if err != nil {
		return resource.Resource{}, err
	}
	return p.ShowResource(ctx, id)
}

// FetchDependentResources asks every plugin that lists parent's type as a
// parent type for its dependents of parent. Results keep plugin
// registration order.
func (r *Registry) FetchDependentResources(ctx context.Context, parent resource.Resource) ([]resource.Resource, error) {
	var out []resource.Resource
	for _, p := range r.byParent[parent.Type] {
		deps, err := p.DependentResources(ctx, parent)
		if err != nil {
			var listErr *ListProtectableResourceFailedError
			if errors.As(err, &listErr) {
				return nil, err
			}
			return nil, NewListFailed(p.ResourceType(), err)
		}
		out = append(out, deps...)
	}
	return out, nil
}

// BuildGraph expands seeds into the full dependency graph. Every resource
// reached must have a registered plugin. Any discovery failure aborts the
// build and no graph is returned.
func (r *Registry) BuildGraph(ctx context.Context, seeds []resource.Resource) (*resourcegraph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	g := resourcegraph.New()

	var worklist []resource.Resource
	for _, seed := range seeds {
		if err := seed.Validate(); err != nil {
			return nil, err
		}
		if g.AddNode(seed) {
			worklist = append(worklist, seed)
		}
	}

	for len(worklist) > 0 {
		current := worklist[0]
		worklist = worklist[1:]

		if _, err := r.Plugin(current.Type); err != nil {
			return nil, err
		}

		children, err := r.FetchDependentResources(ctx, current)
		if err != nil {
			return nil, err
		}
		logger.Debug("Discovered dependents.", "resource", current.Key(), "count", len(children))

		for _, child := range children {
			if err := child.Validate(); err != nil {
				return nil, fmt.Errorf("dependent of %s: %w", current.Key(), err)
			}
			if g.AddNode(child) {
				worklist = append(worklist, child)
			}
			if child.Key() == current.Key() {
				return nil, &resourcegraph.CycleError{Path: []resource.Key{current.Key(), child.Key()}}
			}
			if err := g.AddEdge(current.Key(), child.Key()); err != nil {
				return nil, err
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Resource graph built.", "seeds", len(seeds), "resources", g.Len())
	return g, nil
}
