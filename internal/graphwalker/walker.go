// Package graphwalker implements a depth-first traversal over a resource
// graph with a listener protocol. It knows nothing about protection: the
// listeners decide what a visit means.
package graphwalker

import (
	"fmt"

	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/resourcegraph"
)

// Graph is the topology the walker needs. *resourcegraph.Graph satisfies it.
type Graph interface {
	Roots() []resource.Key
	Children(k resource.Key) []resource.Key
	Resource(k resource.Key) (resource.Resource, bool)
	Len() int
}

// Listener receives traversal events.
//
// OnResourceStart is called when a node is entered. isFirstVisit is true only
// the first time a key is entered during the whole walk; later entries along
// other parent paths still fire, with isFirstVisit false.
//
// OnResourceEnd is called when leaving a node, after all of its children
// have been visited. It fires once per entry, mirroring OnResourceStart.
//
// Returning an error from either callback aborts the walk.
type Listener interface {
	OnResourceStart(r resource.Resource, isFirstVisit bool) error
	OnResourceEnd(r resource.Resource) error
}

// Walker walks graphs and notifies its registered listeners in registration
// order.
type Walker struct {
	listeners []Listener
}

// New creates a walker with the given listeners.
func New(listeners ...Listener) *Walker {
	return &Walker{listeners: listeners}
}

// Register adds a listener.
func (w *Walker) Register(l Listener) {
	w.listeners = append(w.listeners, l)
}

// Walk traverses g depth-first from each root, visiting children in stored
// order. A node found on its own ancestor path aborts the walk with an error
// matching resourcegraph.ErrCyclicGraph.
func (w *Walker) Walk(g Graph) error {
	visited := make(map[resource.Key]bool)
	onPath := make(map[resource.Key]bool)
	var path []resource.Key

	var visit func(k resource.Key) error
	visit = func(k resource.Key) error {
		if onPath[k] {
			cycle := append([]resource.Key(nil), path...)
			for i, p := range cycle {
				if p == k {
					cycle = cycle[i:]
					break
				}
			}
			return &resourcegraph.CycleError{Path: append(cycle, k)}
		}

		r, ok := g.Resource(k)
		if !ok {
			return fmt.Errorf("graph references unknown resource %s", k)
		}

		first := !visited[k]
		visited[k] = true
		if err := w.start(r, first); err != nil {
			return err
		}

		onPath[k] = true
		path = append(path, k)
		for _, child := range g.Children(k) {
			if err := visit(child); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(onPath, k)

		return w.end(r)
	}

	for _, root := range g.Roots() {
		if err := visit(root); err != nil {
			return err
		}
	}

	// In a finite DAG every node is reachable from some root, so anything
	// left over sits on a cycle with no entry point.
	if len(visited) != g.Len() {
		return fmt.Errorf("%w: %d resources unreachable from any root", resourcegraph.ErrCyclicGraph, g.Len()-len(visited))
	}
	return nil
}

func (w *Walker) start(r resource.Resource, first bool) error {
	for _, l := range w.listeners {
		if err := l.OnResourceStart(r, first); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) end(r resource.Resource) error {
	for _, l := range w.listeners {
		if err := l.OnResourceEnd(r); err != nil {
			return err
		}
	}
	return nil
}
