package resourcegraph

import (
	"fmt"

	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/vmihailenco/msgpack/v5"
)

// packFormatVersion is bumped whenever the packed layout changes.
const packFormatVersion = 1

// Packed is the serializable form of a Graph. Parents are implied by the
// children lists and rebuilt on Unpack.
type Packed struct {
	Version int          `msgpack:"version" json:"version"`
	Nodes   []PackedNode `msgpack:"nodes" json:"nodes"`
}

// PackedNode is one node of a Packed graph.
type PackedNode struct {
	Resource resource.Resource `msgpack:"resource" json:"resource"`
	Children []resource.Key    `msgpack:"children,omitempty" json:"children,omitempty"`
}

// Pack converts the graph into its serializable form, preserving node and
// child order.
func (g *Graph) Pack() Packed {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p := Packed{Version: packFormatVersion, Nodes: make([]PackedNode, 0, len(g.order))}
	for _, k := range g.order {
		n := g.nodes[k]
		pn := PackedNode{Resource: n.Resource}
		if len(n.Children) > 0 {
			pn.Children = append([]resource.Key(nil), n.Children...)
		}
		p.Nodes = append(p.Nodes, pn)
	}
	return p
}

// Unpack rebuilds a graph from its packed form. Every child must refer to a
// node present in the packed data.
func Unpack(p Packed) (*Graph, error) {
	if p.Version != packFormatVersion {
		return nil, fmt.Errorf("unsupported packed graph version %d", p.Version)
	}

	g := New()
	for _, pn := range p.Nodes {
		if err := pn.Resource.Validate(); err != nil {
			return nil, fmt.Errorf("invalid packed node: %w", err)
		}
		if !g.AddNode(pn.Resource) {
			return nil, fmt.Errorf("duplicate packed node %s", pn.Resource.Key())
		}
	}
	for _, pn := range p.Nodes {
		for _, child := range pn.Children {
			if err := g.AddEdge(pn.Resource.Key(), child); err != nil {
				return nil, fmt.Errorf("invalid packed edge: %w", err)
			}
		}
	}
	return g, nil
}

// Marshal encodes the graph with msgpack.
func Marshal(g *Graph) ([]byte, error) {
	data, err := msgpack.Marshal(g.Pack())
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource graph: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a graph produced by Marshal.
func Unmarshal(data []byte) (*Graph, error) {
	var p Packed
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode resource graph: %w", err)
	}
	return Unpack(p)
}
