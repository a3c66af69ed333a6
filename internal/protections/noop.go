package protections

import (
	"context"

	"github.com/specialistvlad/protectgrid/internal/protection"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/workflow"
)

// NoopName is the config identifier of the noop plugin.
const NoopName = "noop"

// Noop adds a task per resource that does nothing. It is useful to dry-run
// discovery and flow construction.
type Noop struct {
	protection.NoSchemas
}

func NewNoop() *Noop {
	return &Noop{}
}

func (p *Noop) Name() string {
	return NoopName
}

func (p *Noop) SupportedTypes() []string {
	return builtinTypes
}

func (p *Noop) ContributeTask(ctx context.Context, c *protection.ResourceGraphContext, r resource.Resource) (string, error) {
	id := protection.TaskName(c.Operation, r.Key())
	task := workflow.Task{ID: id, Run: func(context.Context) error { return nil }}
	if err := c.Engine.AddTask(c.Flow, task); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Noop) WireDependency(c *protection.ResourceGraphContext, parent, child resource.Key) error {
	return protection.WireChildFirst(c, parent, child)
}
