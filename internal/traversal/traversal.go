// Package traversal implements §4.D's graph traversal algorithms:
// single-step neighborhood expansion, DFS path enumeration, and the
// three shortest-path strategies (bidirectional BFS, Dijkstra, A*),
// plus the batched MultiShortestPath form. Every algorithm walks the
// graph through storage.Engine.GetNodeEdges/GetVertex — the same
// adjacency-scan primitives the executor's scan operators use — so a
// traversal sees the same MVCC snapshot as the rest of its query.
//
// Grounded on the teacher's apoc/algo/algo.go, whose Dijkstra/AStar
// functions define the PriorityQueue-driven control flow adopted here;
// those functions operate on an in-memory *Node/*Relationship graph
// with placeholder adjacency lookups, so the storage-backed neighbor
// resolution, node/edge counters, and persistent-chain path
// representation (model.NPath) are new structure built to close that
// gap against the spec's storage-engine-native traversal model.
package traversal

import (
	"context"
	"math/rand"
	"time"

	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
)

// Counters accumulates the node/edge observability figures named in
// §4.D: "Every traversal accumulates nodes_visited, edges_traversed,
// max_depth_reached, execution_time_ms."
type Counters struct {
	NodesVisited    int64
	EdgesTraversed  int64
	MaxDepthReached int
	ExecutionTimeMs int64
}

func (c *Counters) visitNode()      { c.NodesVisited++ }
func (c *Counters) traverseEdge()   { c.EdgesTraversed++ }
func (c *Counters) reachDepth(d int) {
	if d > c.MaxDepthReached {
		c.MaxDepthReached = d
	}
}

// startTimer returns a func that stamps ExecutionTimeMs when called,
// using a caller-supplied clock so traversal stays free of
// time.Now()/rand-style nondeterminism in its core logic; callers that
// don't care about wall-clock stamping may pass a no-op clock.
func (c *Counters) startTimer(clock func() time.Time) func() {
	start := clock()
	return func() { c.ExecutionTimeMs = clock().Sub(start).Milliseconds() }
}

// EdgeFilter narrows which edges a traversal will cross: an optional
// set of allowed edge types (nil/empty means "all types").
type EdgeFilter struct {
	Types map[string]struct{}
}

func NewEdgeFilter(types ...string) EdgeFilter {
	if len(types) == 0 {
		return EdgeFilter{}
	}
	m := make(map[string]struct{}, len(types))
	for _, t := range types {
		m[t] = struct{}{}
	}
	return EdgeFilter{Types: m}
}

func (f EdgeFilter) allows(edgeType string) bool {
	if len(f.Types) == 0 {
		return true
	}
	_, ok := f.Types[edgeType]
	return ok
}

// neighbors fetches the adjacency of vid through the edge direction
// and type filter, returning each (edge, destination vertex) pair.
// Edges whose far endpoint can't be loaded (concurrently deleted) are
// skipped rather than failing the whole traversal.
func neighbors(ctx context.Context, e *storage.Engine, tx *storage.Tx, space string, vid model.VID, dir model.Direction, filter EdgeFilter, counters *Counters) ([]model.Step, error) {
	edges := e.GetNodeEdges(tx, space, vid, dir)
	out := make([]model.Step, 0, len(edges))
	for _, ed := range edges {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if !filter.allows(ed.Type) {
			continue
		}
		dst := ed.Dst
		if dir == model.DirIn {
			dst = ed.Src
		}
		dstVx, ok, err := e.GetVertex(tx, space, dst)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		counters.traverseEdge()
		out = append(out, model.Step{Edge: *ed, Dst: *dstVx})
	}
	return out, nil
}

// selfLoopKey canonicalizes a self-loop edge (src == dst) by
// (edge_type, rank) so a dedup helper can admit each self-loop once,
// per §4.D's "Self-loop deduplication" rule: ordinary (non-self-loop)
// edges are not affected.
func selfLoopKey(ed model.Edge) (string, bool) {
	if !ed.Src.Equal(ed.Dst) {
		return "", false
	}
	return ed.Type + "\x00" + itoa(ed.Rank), true
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// selfLoopDedup filters a neighbor slice so that only the first edge
// with a given (type, rank) self-loop identity survives; non-self-loop
// steps pass through untouched.
func selfLoopDedup(steps []model.Step, seen map[string]struct{}) []model.Step {
	out := steps[:0:0]
	for _, s := range steps {
		if key, isLoop := selfLoopKey(s.Edge); isLoop {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, s)
	}
	return out
}

// reservoirSample picks k items from items uniformly at random using
// Algorithm R, matching §4.D's "Expand with sampling" requirement:
// "If step_limits[d] exceeds the current frontier size, reservoir
// sampling is used to pick step_limits[d] vertices uniformly at
// random." rng is caller-supplied so traversal stays deterministic
// under a seeded test rng.
func reservoirSample(items []model.Step, k int, rng *rand.Rand) []model.Step {
	if k <= 0 || len(items) <= k {
		return items
	}
	out := make([]model.Step, k)
	copy(out, items[:k])
	for i := k; i < len(items); i++ {
		j := rng.Intn(i + 1)
		if j < k {
			out[j] = items[i]
		}
	}
	return out
}

// weightOf extracts a numeric weight from an edge's property bag,
// defaulting to 1.0 when the property is absent or non-numeric —
// mirroring the teacher's getWeight placeholder, now resolved against
// a real property bag instead of a stub.
func weightOf(ed model.Edge, property string) float64 {
	if property == "" {
		return 1.0
	}
	v, ok := ed.Properties[property]
	if !ok || !v.IsNumeric() {
		return 1.0
	}
	return v.AsFloat()
}
