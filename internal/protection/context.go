package protection

import (
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/checkpoint"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/workflow"
)

// Operation is the kind of flow being built.
type Operation string

const (
	OperationProtect Operation = "protect"
	OperationRestore Operation = "restore"
	OperationDelete  Operation = "delete"
)

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	return o == OperationProtect || o == OperationRestore || o == OperationDelete
}

// Parameters holds per-request plugin parameters. Keys are either a
// resource type or a "type#id" resource key; the latter wins.
type Parameters map[string]map[string]string

// For returns the parameters that apply to r.
func (p Parameters) For(r resource.Key) map[string]string {
	if v, ok := p[r.String()]; ok {
		return v
	}
	return p[r.Type]
}

// RestoreTemplate collects the resources created by a restore, keyed by the
// original resource they replace. Restore tasks of dependents read it to
// find their restored parents.
type RestoreTemplate struct {
	mu       sync.RWMutex
	restored map[resource.Key]resource.Resource
}

func NewRestoreTemplate() *RestoreTemplate {
	return &RestoreTemplate{restored: make(map[resource.Key]resource.Resource)}
}

// Put records that original was restored as r.
func (t *RestoreTemplate) Put(original resource.Key, r resource.Resource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restored[original] = r
}

// Get returns the restored counterpart of original.
func (t *RestoreTemplate) Get(original resource.Key) (resource.Resource, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.restored[original]
	return r, ok
}

// Keys returns the original keys that were restored, sorted.
func (t *RestoreTemplate) Keys() []resource.Key {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]resource.Key, 0, len(t.restored))
	for k := range t.restored {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// ResourceGraphContext is the state shared by the walker listener and the
// plugins while one flow is built. The exported fields are set at
// construction and must not be changed afterwards.
type ResourceGraphContext struct {
	Identity   string
	Operation  Operation
	Engine     workflow.Engine
	Flow       workflow.Flow
	Plugins    map[string]Plugin
	Parameters Parameters

	// Checkpoints and CheckpointID locate the checkpoint the flow reads
	// from or writes to.
	Checkpoints  *checkpoint.Collection
	CheckpointID string
	// Template is set for restore flows only.
	Template *RestoreTemplate

	statusGetters map[resource.Key]workflow.StatusGetter
	tasks         map[resource.Key]string
}

// ContextOptions are the inputs of NewResourceGraphContext.
type ContextOptions struct {
	Identity     string
	Operation    Operation
	Engine       workflow.Engine
	FlowName     string
	Plugins      map[string]Plugin
	Parameters   Parameters
	Checkpoints  *checkpoint.Collection
	CheckpointID string
}

// NewResourceGraphContext creates a context with a fresh flow.
func NewResourceGraphContext(opts ContextOptions) *ResourceGraphContext {
	c := &ResourceGraphContext{
		Identity:      opts.Identity,
		Operation:     opts.Operation,
		Engine:        opts.Engine,
		Flow:          opts.Engine.NewFlow(opts.FlowName),
		Plugins:       opts.Plugins,
		Parameters:    opts.Parameters,
		Checkpoints:   opts.Checkpoints,
		CheckpointID:  opts.CheckpointID,
		statusGetters: make(map[resource.Key]workflow.StatusGetter),
		tasks:         make(map[resource.Key]string),
	}
	if opts.Operation == OperationRestore {
		c.Template = NewRestoreTemplate()
	}
	return c
}

// Plugin returns the plugin bound to resourceType.
func (c *ResourceGraphContext) Plugin(resourceType string) (Plugin, error) {
	p, ok := c.Plugins[resourceType]
	if !ok {
		return nil, &PluginNotFoundError{Type: resourceType}
	}
	return p, nil
}

// TaskID returns the id of the task contributed for k.
func (c *ResourceGraphContext) TaskID(k resource.Key) (string, bool) {
	id, ok := c.tasks[k]
	return id, ok
}

// HasTask reports whether k already received a task.
func (c *ResourceGraphContext) HasTask(k resource.Key) bool {
	_, ok := c.tasks[k]
	return ok
}

// StatusGetters returns the status getter of every resource that received a
// task.
func (c *ResourceGraphContext) StatusGetters() map[resource.Key]workflow.StatusGetter {
	out := make(map[resource.Key]workflow.StatusGetter, len(c.statusGetters))
	for k, v := range c.statusGetters {
		out[k] = v
	}
	return out
}

func (c *ResourceGraphContext) recordTask(k resource.Key, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("plugin contributed no task for %s", k)
	}
	getter, err := c.Flow.StatusGetter(taskID)
	if err != nil {
		return fmt.Errorf("task for %s: %w", k, err)
	}
	c.tasks[k] = taskID
	c.statusGetters[k] = getter
	return nil
}

// ResourceSection returns the bank section holding the data of k in the
// context's checkpoint.
func (c *ResourceGraphContext) ResourceSection(k resource.Key) *bank.Bank {
	return c.Checkpoints.ResourceSection(c.CheckpointID, k)
}

// TaskName builds a task id unique within a flow.
func TaskName(op Operation, k resource.Key) string {
	return fmt.Sprintf("%s:%s", op, k)
}

// WireChildFirst makes the parent's task wait for the child's task.
func WireChildFirst(c *ResourceGraphContext, parent, child resource.Key) error {
	return wire(c, parent, child)
}

// WireParentFirst makes the child's task wait for the parent's task.
func WireParentFirst(c *ResourceGraphContext, parent, child resource.Key) error {
	return wire(c, child, parent)
}

func wire(c *ResourceGraphContext, waiter, first resource.Key) error {
	waiterTask, ok := c.TaskID(waiter)
	if !ok {
		return fmt.Errorf("no task recorded for %s", waiter)
	}
	firstTask, ok := c.TaskID(first)
	if !ok {
		return fmt.Errorf("no task recorded for %s", first)
	}
	return c.Engine.AddDependency(c.Flow, waiterTask, firstTask)
}
