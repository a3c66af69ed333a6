package protection

import (
	"context"
	"fmt"

	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"github.com/specialistvlad/protectgrid/internal/resource"
)

// WalkerListener builds the flow of a ResourceGraphContext while a graph is
// walked. It keeps the current walk path to know each visit's parent.
type WalkerListener struct {
	ctx  context.Context
	rgc  *ResourceGraphContext
	path []resource.Key
}

// NewWalkerListener creates a listener filling rgc. ctx is handed to plugins
// when they contribute tasks.
func NewWalkerListener(ctx context.Context, rgc *ResourceGraphContext) *WalkerListener {
	return &WalkerListener{ctx: ctx, rgc: rgc}
}

// OnResourceStart resolves the plugin of r, contributes its task on the first
// visit and wires the edge from the parent on the walk path.
func (l *WalkerListener) OnResourceStart(r resource.Resource, isFirstVisit bool) error {
	key := r.Key()
	plugin, err := l.rgc.Plugin(r.Type)
	if err != nil {
		return err
	}

	if isFirstVisit {
		taskID, err := plugin.ContributeTask(l.ctx, l.rgc, r)
		if err != nil {
			return fmt.Errorf("plugin '%s' failed to contribute task for %s: %w", plugin.Name(), key, err)
		}
		if err := l.rgc.recordTask(key, taskID); err != nil {
			return err
		}
		ctxlog.FromContext(l.ctx).Debug("Task contributed.", "resource", key, "task", taskID, "plugin", plugin.Name())
	}

	if n := len(l.path); n > 0 {
		parent := l.path[n-1]
		parentPlugin, err := l.rgc.Plugin(parent.Type)
		if err != nil {
			return err
		}
		if err := parentPlugin.WireDependency(l.rgc, parent, key); err != nil {
			return fmt.Errorf("failed to wire %s -> %s: %w", parent, key, err)
		}
	}

	l.path = append(l.path, key)
	return nil
}

// OnResourceEnd pops r from the walk path.
func (l *WalkerListener) OnResourceEnd(r resource.Resource) error {
	n := len(l.path)
	if n == 0 || l.path[n-1] != r.Key() {
		return fmt.Errorf("unbalanced walk: leaving %s", r.Key())
	}
	l.path = l.path[:n-1]
	return nil
}
