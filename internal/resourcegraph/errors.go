package resourcegraph

import (
	"errors"
	"strings"

	"github.com/specialistvlad/protectgrid/internal/resource"
)

// ErrCyclicGraph is matched by every cycle error produced by this package or
// by walkers operating on a graph.
var ErrCyclicGraph = errors.New("cyclic resource graph")

// CycleError reports the path that closes a cycle. The first and last keys
// of Path are the same node.
type CycleError struct {
	Path []resource.Key
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Path))
	for _, k := range e.Path {
		parts = append(parts, k.String())
	}
	return "cycle detected in resource graph: " + strings.Join(parts, " -> ")
}

// Is makes errors.Is(err, ErrCyclicGraph) true for any CycleError.
func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicGraph
}
