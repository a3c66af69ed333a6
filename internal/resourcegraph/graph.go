package resourcegraph

import (
	"fmt"
	"slices"
	"sync"

	"github.com/specialistvlad/protectgrid/internal/resource"
)

// Node is a single vertex of the graph. Values returned by the Graph are
// snapshots; mutating them does not change the graph.
type Node struct {
	Resource resource.Resource
	Parents  []resource.Key
	Children []resource.Key
}

// Key returns the identity of the node's resource.
func (n Node) Key() resource.Key {
	return n.Resource.Key()
}

// Edge is a directed parent -> child relation.
type Edge struct {
	Parent resource.Key
	Child  resource.Key
}

// Graph is a multi-rooted DAG of resources keyed by (type, id).
// All operations are safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[resource.Key]*Node
	// order keeps node insertion order for deterministic iteration.
	order []resource.Key
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[resource.Key]*Node),
	}
}

// AddNode inserts a node for r. It returns false if a node for the same key
// already exists, in which case the graph is left untouched.
func (g *Graph) AddNode(r resource.Resource) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := r.Key()
	if _, exists := g.nodes[k]; exists {
		return false
	}
	g.nodes[k] = &Node{Resource: r}
	g.order = append(g.order, k)
	return true
}

// AddEdge records that child is a dependent of parent. Both nodes must
// already exist. Adding an edge that is already present is a no-op.
func (g *Graph) AddEdge(parent, child resource.Key) error {
	if parent == child {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", parent, child)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	parentNode, ok := g.nodes[parent]
	if !ok {
		return fmt.Errorf("parent node not found: %s", parent)
	}
	childNode, ok := g.nodes[child]
	if !ok {
		return fmt.Errorf("child node not found: %s", child)
	}

	if slices.Contains(parentNode.Children, child) {
		return nil
	}
	parentNode.Children = append(parentNode.Children, child)
	childNode.Parents = append(childNode.Parents, parent)
	return nil
}

// Len returns the number of distinct resource keys in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Node returns a snapshot of the node stored under k.
func (g *Graph) Node(k resource.Key) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[k]
	if !ok {
		return Node{}, false
	}
	return Node{
		Resource: n.Resource,
		Parents:  slices.Clone(n.Parents),
		Children: slices.Clone(n.Children),
	}, true
}

// Resource returns the resource stored under k.
func (g *Graph) Resource(k resource.Key) (resource.Resource, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[k]
	if !ok {
		return resource.Resource{}, false
	}
	return n.Resource, true
}

// Children returns the dependents of k in insertion order.
func (g *Graph) Children(k resource.Key) []resource.Key {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if n, ok := g.nodes[k]; ok {
		return slices.Clone(n.Children)
	}
	return nil
}

// Parents returns the nodes k depends on structurally, in insertion order.
func (g *Graph) Parents(k resource.Key) []resource.Key {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if n, ok := g.nodes[k]; ok {
		return slices.Clone(n.Parents)
	}
	return nil
}

// Roots returns every node without parents, in insertion order.
func (g *Graph) Roots() []resource.Key {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var roots []resource.Key
	for _, k := range g.order {
		if len(g.nodes[k].Parents) == 0 {
			roots = append(roots, k)
		}
	}
	return roots
}

// Keys returns all node keys in insertion order.
func (g *Graph) Keys() []resource.Key {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.order)
}

// Edges returns all edges, grouped by parent in node insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []Edge
	for _, k := range g.order {
		for _, child := range g.nodes[k].Children {
			edges = append(edges, Edge{Parent: k, Child: child})
		}
	}
	return edges
}

// DetectCycles checks the graph for any cycle. The returned error is a
// *CycleError describing the first cycle found.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// permanent: fully explored and known to be acyclic.
	// onPath: nodes on the current DFS path.
	permanent := make(map[resource.Key]bool, len(g.nodes))
	onPath := make(map[resource.Key]bool)
	var path []resource.Key

	var visit func(k resource.Key) error
	visit = func(k resource.Key) error {
		if permanent[k] {
			return nil
		}
		if onPath[k] {
			start := slices.Index(path, k)
			cycle := append(slices.Clone(path[start:]), k)
			return &CycleError{Path: cycle}
		}

		onPath[k] = true
		path = append(path, k)
		for _, child := range g.nodes[k].Children {
			if err := visit(child); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(onPath, k)
		permanent[k] = true
		return nil
	}

	for _, k := range g.order {
		if err := visit(k); err != nil {
			return err
		}
	}
	return nil
}
