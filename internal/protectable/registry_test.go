package protectable

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/resourcegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlugin serves dependents from a static parent id -> children table.
type fakePlugin struct {
	typ      string
	parents  []string
	children map[string][]string
	failOn   string
	calls    int
}

func (f *fakePlugin) ResourceType() string  { return f.typ }
func (f *fakePlugin) ParentTypes() []string { return f.parents }

func (f *fakePlugin) ListResources(ctx context.Context) ([]resource.Resource, error) {
	return []resource.Resource{resource.New(f.typ, "only", "only")}, nil
}

func (f *fakePlugin) ShowResource(ctx context.Context, id string) (resource.Resource, error) {
	return resource.New(f.typ, id, "name-"+id), nil
}

func (f *fakePlugin) DependentResources(ctx context.Context, parent resource.Resource) ([]resource.Resource, error) {
	f.calls++
	if parent.ID == f.failOn {
		return nil, errors.New("cloud unavailable")
	}
	var out []resource.Resource
	for _, id := range f.children[parent.ID] {
		out = append(out, resource.New(f.typ, id, id))
	}
	return out, nil
}

// newFakeRegistry registers a single self-parenting type "node" whose
// dependents come from children.
func newFakeRegistry(children map[string][]string) (*Registry, *fakePlugin) {
	r := NewRegistry()
	p := &fakePlugin{typ: "node", parents: []string{"node"}, children: children}
	r.Register(p)
	return r, p
}

func nodeKey(id string) resource.Key {
	return resource.Key{Type: "node", ID: id}
}

func TestBuildGraph_Diamond(t *testing.T) {
	r, _ := newFakeRegistry(map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
	})

	g, err := r.BuildGraph(context.Background(), []resource.Resource{resource.New("node", "A", "A")})
	require.NoError(t, err)

	assert.Equal(t, 4, g.Len())
	assert.Equal(t, []resource.Key{nodeKey("A")}, g.Roots())
	assert.Equal(t, []resource.Key{nodeKey("B"), nodeKey("C")}, g.Children(nodeKey("A")))
	assert.Equal(t, []resource.Key{nodeKey("B"), nodeKey("C")}, g.Parents(nodeKey("D")), "D is shared, not duplicated")
}

func TestBuildGraph_SeedReachedFromAnotherSeed(t *testing.T) {
	r, p := newFakeRegistry(map[string][]string{
		"A": {"B"},
	})

	g, err := r.BuildGraph(context.Background(), []resource.Resource{
		resource.New("node", "A", "A"),
		resource.New("node", "B", "B"),
		resource.New("node", "A", "A"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []resource.Key{nodeKey("A")}, g.Roots())
	assert.Equal(t, 2, p.calls, "every key is expanded exactly once")
}

func TestBuildGraph_CycleIsReported(t *testing.T) {
	r, _ := newFakeRegistry(map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
	})

	_, err := r.BuildGraph(context.Background(), []resource.Resource{resource.New("node", "A", "A")})
	assert.ErrorIs(t, err, resourcegraph.ErrCyclicGraph)
}

func TestBuildGraph_SelfDependencyIsACycle(t *testing.T) {
	r, _ := newFakeRegistry(map[string][]string{"A": {"A"}})

	_, err := r.BuildGraph(context.Background(), []resource.Resource{resource.New("node", "A", "A")})
	assert.ErrorIs(t, err, resourcegraph.ErrCyclicGraph)
}

func TestBuildGraph_DiscoveryFailureAborts(t *testing.T) {
	r, p := newFakeRegistry(map[string][]string{"A": {"B"}})
	p.failOn = "B"

	g, err := r.BuildGraph(context.Background(), []resource.Resource{resource.New("node", "A", "A")})
	assert.Nil(t, g)

	var listErr *ListProtectableResourceFailedError
	require.ErrorAs(t, err, &listErr)
	assert.Equal(t, "node", listErr.Type)
	assert.Equal(t, "cloud unavailable", listErr.Reason)
}

func TestBuildGraph_UnknownTypeFails(t *testing.T) {
	r, _ := newFakeRegistry(nil)

	_, err := r.BuildGraph(context.Background(), []resource.Resource{resource.New("ghost", "x", "x")})
	assert.ErrorIs(t, err, ErrPluginNotFound)

	var notFound *PluginNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Type)
}

func TestBuildGraph_InvalidSeed(t *testing.T) {
	r, _ := newFakeRegistry(nil)

	_, err := r.BuildGraph(context.Background(), []resource.Resource{{Type: "node"}})
	assert.Error(t, err)
}

func TestRegistry_Queries(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakePlugin{typ: "server", parents: []string{"project"}})
	r.Register(&fakePlugin{typ: "volume", parents: []string{"server", "project"}})
	r.Register(&fakePlugin{typ: "project"})

	assert.Equal(t, []string{"project", "server", "volume"}, r.ListResourceTypes())

	typ, err := r.ShowProtectableType("project")
	require.NoError(t, err)
	assert.Equal(t, Type{Name: "project", DependentTypes: []string{"server", "volume"}}, typ)

	typ, err = r.ShowProtectableType("volume")
	require.NoError(t, err)
	assert.Empty(t, typ.DependentTypes)

	_, err = r.ShowProtectableType("network")
	assert.ErrorIs(t, err, ErrPluginNotFound)

	res, err := r.ShowResource(context.Background(), "server", "s1")
	require.NoError(t, err)
	assert.Equal(t, resource.New("server", "s1", "name-s1"), res)

	list, err := r.ListResources(context.Background(), "volume")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Panics(t, func() { r.Register(&fakePlugin{typ: "server"}) })
}
