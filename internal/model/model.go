// Package model defines the graph data model of §3: Vertex, Edge, Tag,
// Path and the persistent-chain NPath variant used during BFS frontier
// growth. It is grounded on the teacher's pkg/storage/types.go Node/Edge
// shapes, generalized to the spec's tagged-vertex, ranked-edge model
// (a vertex carries multiple Tags rather than a flat Labels slice, and
// edges carry a Rank to permit parallel edges of the same type).
package model

import (
	"strconv"

	"github.com/orneryd/nordgraph/internal/value"
)

// VID is a vertex identifier. Its concrete representation (int64 or a
// fixed-length string) is declared per Space; VID wraps a value.Value
// so comparisons and hashing reuse the Value machinery.
type VID struct {
	V value.Value
}

func IntVID(i int64) VID    { return VID{V: value.Int(i)} }
func StringVID(s string) VID { return VID{V: value.String(s)} }

func (v VID) String() string { return v.V.String() }
func (v VID) Equal(o VID) bool {
	return value.Equal(v.V, o.V).IsTrue()
}

// Tag is a named group of properties attached to a vertex. A vertex
// may carry several tags (spec §3: "a vertex may carry multiple
// tags").
type Tag struct {
	Name       string
	Properties map[string]value.Value
}

// Vertex is the (vid, tags, properties) triple of §3. Properties here
// are the vertex-level bag; Tags additionally carry their own
// per-tag property bags (a vertex inserted with two tags can have
// distinct property sets per tag, mirroring a property-graph "Person"
// + "Employee" dual-tag vertex).
type Vertex struct {
	VID        VID
	Tags       []Tag
	Properties map[string]value.Value
	// Version is the MVCC monotone version at which this snapshot of
	// the vertex was read or written (spec §3 invariant: "Vertices
	// carry a monotone version for MVCC").
	Version uint64
}

// HasTag reports whether the vertex carries a tag with the given name.
func (vx *Vertex) HasTag(name string) bool {
	for _, t := range vx.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// TagProperties returns the property bag for a given tag, or nil.
func (vx *Vertex) TagProperties(name string) map[string]value.Value {
	for _, t := range vx.Tags {
		if t.Name == name {
			return t.Properties
		}
	}
	return nil
}

// Direction of an edge traversal relative to a vertex.
type Direction uint8

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

// EdgeKey is the (src, dst, type, rank) identity quadruple (§3). VID
// wraps value.Value, which carries slice/map fields and so is not
// `==`-comparable; EdgeKey is therefore not usable as a map key or
// compared with `==` either. Use Key() for map/set membership and
// Equals() for identity comparison.
type EdgeKey struct {
	Src  VID
	Dst  VID
	Type string
	Rank int64
}

// Key returns a canonical string identity for use as a map/set key.
func (k EdgeKey) Key() string {
	return k.Src.String() + "\x00" + k.Type + "\x00" + strconv.FormatInt(k.Rank, 10) + "\x00" + k.Dst.String()
}

// Equals reports whether two edge identities refer to the same edge.
func (k EdgeKey) Equals(o EdgeKey) bool {
	return k.Type == o.Type && k.Rank == o.Rank && k.Src.Equal(o.Src) && k.Dst.Equal(o.Dst)
}

// Edge is the full edge record; EdgeKey embeds its identity.
type Edge struct {
	EdgeKey
	Properties map[string]value.Value
	Version    uint64
}

// Step is one hop of a Path: the edge taken and the vertex it lands
// on.
type Step struct {
	Edge Edge
	Dst  Vertex
}

// Path is a materialized walk through the graph: a source vertex plus
// an ordered list of steps. This is the flat representation produced
// at query-result time; BFS frontier growth uses NPath internally and
// only materializes to Path on output (Design Notes §9).
type Path struct {
	Src   Vertex
	Steps []Step
}

// Len returns the number of edges (hops) in the path.
func (p Path) Len() int { return len(p.Steps) }

// Dst returns the final vertex of the path, or Src if the path is
// zero-length.
func (p Path) Dst() Vertex {
	if len(p.Steps) == 0 {
		return p.Src
	}
	return p.Steps[len(p.Steps)-1].Dst
}

// HasDuplicateEdge reports whether any edge identity (src,dst,type,rank)
// appears twice in the path (spec §8 invariant 3: shortest-path output
// must never repeat an edge identity).
func (p Path) HasDuplicateEdge() bool {
	seen := make(map[string]struct{}, len(p.Steps))
	for _, s := range p.Steps {
		k := s.Edge.EdgeKey.Key()
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}

// NPath is a persistent, structurally-shared path representation: a
// linked chain of nodes, each holding one step and a pointer to its
// parent. Extending an NPath during BFS frontier growth is O(1) and
// never copies the prefix, unlike appending to a flat []Step slice
// (Design Notes §9: "materialize to flat Path only at output time").
type NPath struct {
	parent *NPath
	vertex Vertex
	edge   *Edge // nil at the root
	length int
}

// NewNPath creates the root of a persistent path at the given seed
// vertex.
func NewNPath(seed Vertex) *NPath {
	return &NPath{vertex: seed}
}

// Extend returns a new NPath sharing the receiver's entire prefix,
// with one additional (edge, vertex) step appended. The receiver is
// never mutated, so concurrently-forking BFS branches can all extend
// the same parent safely.
func (p *NPath) Extend(e Edge, dst Vertex) *NPath {
	return &NPath{parent: p, vertex: dst, edge: &e, length: p.length + 1}
}

// Len reports the number of edges from the root to this node.
func (p *NPath) Len() int { return p.length }

// Vertex returns the vertex this chain node represents.
func (p *NPath) Vertex() Vertex { return p.vertex }

// Contains reports whether vid appears anywhere along the chain from
// this node back to the root (used for cycle detection in ExpandAll).
func (p *NPath) Contains(vid VID) bool {
	for n := p; n != nil; n = n.parent {
		if n.vertex.VID.Equal(vid) {
			return true
		}
	}
	return false
}

// HasEdge reports whether an edge with the given identity already
// appears on the chain (used for edge-identity deduplication).
func (p *NPath) HasEdge(key EdgeKey) bool {
	for n := p; n != nil; n = n.parent {
		if n.edge != nil && n.edge.EdgeKey.Equals(key) {
			return true
		}
	}
	return false
}

// Materialize flattens the persistent chain into an output Path,
// walking from root to tip once.
func (p *NPath) Materialize() Path {
	var chain []*NPath
	for n := p; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	// chain is tip-to-root; reverse to root-to-tip.
	out := Path{Src: chain[len(chain)-1].vertex}
	for i := len(chain) - 2; i >= 0; i-- {
		n := chain[i]
		out.Steps = append(out.Steps, Step{Edge: *n.edge, Dst: n.vertex})
	}
	return out
}

// Reverse produces a new flat Path walking this chain from tip to
// root; each step keeps its edge exactly as recorded (src/dst are not
// swapped), only the walk order is reversed — used to splice a right-frontier chain onto a left-frontier chain
// in bidirectional BFS.
func (p *NPath) Reverse() Path {
	fwd := p.Materialize()
	out := Path{Src: fwd.Dst()}
	for i := len(fwd.Steps) - 1; i >= 0; i-- {
		s := fwd.Steps[i]
		var from Vertex
		if i == 0 {
			from = fwd.Src
		} else {
			from = fwd.Steps[i-1].Dst
		}
		// s.Edge already holds the true (src,dst) identity recorded by
		// Extend — Materialize only walks the chain in reverse order,
		// it never flips the edge itself, so Reverse must not flip it
		// again here.
		out.Steps = append(out.Steps, Step{Edge: s.Edge, Dst: from})
	}
	return out
}
