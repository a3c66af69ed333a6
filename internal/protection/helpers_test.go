package protection

import (
	"context"
	"sync"
	"testing"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/bank/memorybank"
	"github.com/specialistvlad/protectgrid/internal/protectable"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/workflow"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const nodeType = "node"

func nodeKey(id string) resource.Key {
	return resource.Key{Type: nodeType, ID: id}
}

func node(id string) resource.Resource {
	return resource.New(nodeType, id, "name-"+id)
}

// fakeProtectable serves "node" dependents from a static table.
type fakeProtectable struct {
	children map[string][]string
}

func (f *fakeProtectable) ResourceType() string  { return nodeType }
func (f *fakeProtectable) ParentTypes() []string { return []string{nodeType} }

func (f *fakeProtectable) ListResources(ctx context.Context) ([]resource.Resource, error) {
	return nil, nil
}

func (f *fakeProtectable) ShowResource(ctx context.Context, id string) (resource.Resource, error) {
	return node(id), nil
}

func (f *fakeProtectable) DependentResources(ctx context.Context, parent resource.Resource) ([]resource.Resource, error) {
	var out []resource.Resource
	for _, id := range f.children[parent.ID] {
		out = append(out, node(id))
	}
	return out, nil
}

// journal records the order in which task bodies ran.
type journal struct {
	mu  sync.Mutex
	ran []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ran = append(j.ran, s)
}

func (j *journal) index(s string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, v := range j.ran {
		if v == s {
			return i
		}
	}
	return -1
}

// recordingPlugin contributes a task per resource that writes to a journal
// and orders dependents before their parents.
type recordingPlugin struct {
	name    string
	types   []string
	journal *journal
	options map[string]Schema
}

func (p *recordingPlugin) Name() string             { return p.name }
func (p *recordingPlugin) SupportedTypes() []string { return p.types }

func (p *recordingPlugin) ContributeTask(ctx context.Context, c *ResourceGraphContext, r resource.Resource) (string, error) {
	id := TaskName(c.Operation, r.Key())
	key := r.Key().String()
	task := workflow.Task{ID: id, Run: func(context.Context) error {
		p.journal.add(key)
		return nil
	}}
	return id, c.Engine.AddTask(c.Flow, task)
}

func (p *recordingPlugin) WireDependency(c *ResourceGraphContext, parent, child resource.Key) error {
	return WireChildFirst(c, parent, child)
}

func (p *recordingPlugin) OptionsSchema(t string) (Schema, bool) {
	s, ok := p.options[t]
	return s, ok
}

func (p *recordingPlugin) RestoreSchema(string) (Schema, bool)   { return Schema{}, false }
func (p *recordingPlugin) SavedInfoSchema(string) (Schema, bool) { return Schema{}, false }

// edgeEngine records every dependency added through it.
type edgeEngine struct {
	workflow.Engine
	mu    sync.Mutex
	edges [][2]string
}

func (e *edgeEngine) AddDependency(flow workflow.Flow, task, dependsOn string) error {
	e.mu.Lock()
	e.edges = append(e.edges, [2]string{task, dependsOn})
	e.mu.Unlock()
	return e.Engine.AddDependency(flow, task, dependsOn)
}

type fixture struct {
	deps    Dependencies
	engine  *edgeEngine
	journal *journal
}

// newFixture wires a memory bank, a "recorder" plugin for nodes and a
// protectable registry serving children.
func newFixture(t *testing.T, children map[string][]string) *fixture {
	t.Helper()
	banks := bank.NewTable()
	memorybank.Backend{}.Register(banks)

	j := &journal{}
	plugins := NewPluginTable()
	plugins.Register("recorder", func() Plugin {
		return &recordingPlugin{name: "recorder", types: []string{nodeType}, journal: j, options: map[string]Schema{
			nodeType: ObjectSchema(map[string]cty.Type{"level": cty.Number}, "level"),
		}}
	})
	plugins.Register("shadow", func() Plugin {
		return &recordingPlugin{name: "shadow", types: []string{nodeType}, journal: j}
	})

	protectables := protectable.NewRegistry()
	protectables.Register(&fakeProtectable{children: children})

	engine := &edgeEngine{Engine: workflow.NewLocalEngine(2)}
	return &fixture{
		deps: Dependencies{
			Banks:        banks,
			Plugins:      plugins,
			Protectables: protectables,
			Engine:       engine,
		},
		engine:  engine,
		journal: j,
	}
}

func (f *fixture) provider(t *testing.T, plugins ...string) *PluggableProtectionProvider {
	t.Helper()
	p, err := NewProvider(context.Background(), Config{
		ID:      "provider-1",
		Name:    "test",
		Bank:    memorybank.Name,
		Plugins: plugins,
	}, f.deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}
