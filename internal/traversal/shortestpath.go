package traversal

import (
	"context"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
)

// ShortestPathOptions drives both BidirectionalBFS and Dijkstra/AStar:
// one or more sources, one or more targets, the edge direction/type
// filter to cross, and the single_shortest/limit knobs of §4.D.
type ShortestPathOptions struct {
	Space          string
	Sources        []model.VID
	Targets        []model.VID
	Direction      model.Direction
	Filter         EdgeFilter
	SingleShortest bool
	Limit          int
}

// ShortestPathResult carries every path found, each guaranteed free of
// duplicate edge identities (§8 invariant 3).
type ShortestPathResult struct {
	Paths    []model.Path
	Counters Counters
}

func reverseDirection(d model.Direction) model.Direction {
	switch d {
	case model.DirOut:
		return model.DirIn
	case model.DirIn:
		return model.DirOut
	default:
		return model.DirBoth
	}
}

func targetSetAtLimit(limit int, count int) bool {
	return limit > 0 && count >= limit
}

// BidirectionalBFS implements §4.D's unweighted shortest-path search:
// two frontiers grown from Sources and Targets, alternating, checked
// for intersection after every step. A meeting vertex M splices the
// left chain (source..M) with the reversed right chain (M..target);
// candidates whose spliced path repeats an edge identity are rejected
// rather than emitted (the spec's "Edge deduplication rejects paths
// containing the same (src, dst, rank) twice").
func BidirectionalBFS(ctx context.Context, e *storage.Engine, tx *storage.Tx, opts ShortestPathOptions) (*ShortestPathResult, error) {
	res := &ShortestPathResult{}

	left := make(map[string]*model.NPath)
	right := make(map[string]*model.NPath)
	leftSeen := make(map[string]struct{})
	rightSeen := make(map[string]struct{})

	var leftFrontier, rightFrontier []*model.NPath
	for _, s := range opts.Sources {
		vx, ok, err := e.GetVertex(tx, opts.Space, s)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		res.Counters.visitNode()
		n := model.NewNPath(*vx)
		left[s.String()] = n
		leftFrontier = append(leftFrontier, n)
	}
	targetSet := make(map[string]struct{}, len(opts.Targets))
	for _, t := range opts.Targets {
		vx, ok, err := e.GetVertex(tx, opts.Space, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		targetSet[t.String()] = struct{}{}
		res.Counters.visitNode()
		n := model.NewNPath(*vx)
		right[t.String()] = n
		rightFrontier = append(rightFrontier, n)
	}

	// Zero-length path: a source is also a target (§8 boundary case:
	// "Single-source = single-target shortest path: a zero-length
	// path.").
	for key, n := range left {
		if _, isTarget := targetSet[key]; isTarget {
			res.Paths = append(res.Paths, n.Materialize())
		}
	}
	if len(res.Paths) > 0 && opts.SingleShortest {
		return res, nil
	}

	var collect = func() bool {
		var found bool
		for key, ln := range left {
			rn, ok := right[key]
			if !ok {
				continue
			}
			leftPath := ln.Materialize()
			rightPath := rn.Reverse()
			combined := model.Path{Src: leftPath.Src}
			combined.Steps = append(combined.Steps, leftPath.Steps...)
			combined.Steps = append(combined.Steps, rightPath.Steps...)
			if combined.HasDuplicateEdge() {
				continue
			}
			res.Paths = append(res.Paths, combined)
			found = true
			if opts.SingleShortest {
				return true
			}
			if targetSetAtLimit(opts.Limit, len(res.Paths)) {
				return true
			}
		}
		return found
	}

	depth := 0
	const maxRounds = 64 // generous bound: bidirectional BFS halves the distance each round
	for depth < maxRounds {
		if err := ctx.Err(); err != nil {
			return nil, errs.Execution("TRAVERSAL_CANCELLED", "bidirectional_bfs cancelled", err)
		}
		if len(leftFrontier) == 0 && len(rightFrontier) == 0 {
			break
		}

		if len(leftFrontier) > 0 {
			leftFrontier = stepFrontier(ctx, e, tx, opts.Space, opts.Direction, opts.Filter, leftFrontier, left, leftSeen, &res.Counters)
			depth++
			res.Counters.reachDepth(depth)
			if collect() && (opts.SingleShortest || targetSetAtLimit(opts.Limit, len(res.Paths))) {
				return res, nil
			}
		}
		if len(rightFrontier) > 0 {
			rightFrontier = stepFrontier(ctx, e, tx, opts.Space, reverseDirection(opts.Direction), opts.Filter, rightFrontier, right, rightSeen, &res.Counters)
			depth++
			res.Counters.reachDepth(depth)
			if collect() && (opts.SingleShortest || targetSetAtLimit(opts.Limit, len(res.Paths))) {
				return res, nil
			}
		}
	}
	return res, nil
}

// stepFrontier advances one BFS side by one hop, admitting each newly
// reached vertex into visited (keyed by vid string) at most once, and
// applying self-loop dedup to the candidate steps before admission.
func stepFrontier(ctx context.Context, e *storage.Engine, tx *storage.Tx, space string, dir model.Direction, filter EdgeFilter, frontier []*model.NPath, visited map[string]*model.NPath, loopSeen map[string]struct{}, counters *Counters) []*model.NPath {
	var next []*model.NPath
	for _, n := range frontier {
		steps, err := neighbors(ctx, e, tx, space, n.Vertex().VID, dir, filter, counters)
		if err != nil {
			continue
		}
		steps = selfLoopDedup(steps, loopSeen)
		for _, s := range steps {
			key := s.Dst.VID.String()
			if _, dup := visited[key]; dup {
				continue
			}
			child := n.Extend(s.Edge, s.Dst)
			visited[key] = child
			counters.visitNode()
			next = append(next, child)
		}
	}
	return next
}

// DijkstraOptions extends ShortestPathOptions with the edge property
// to use as a weight (default weight 1.0 when absent/non-numeric).
type DijkstraOptions struct {
	ShortestPathOptions
	WeightProperty string
}

// Dijkstra implements §4.D's weighted shortest path: a binary min-heap
// priority queue by cumulative weight, distance_map/previous_map
// recording the best known distance and predecessor edge per vertex,
// terminating when a popped vertex is in the target set (single
// shortest) or once shortest_paths has reached Limit.
func Dijkstra(ctx context.Context, e *storage.Engine, tx *storage.Tx, opts DijkstraOptions) (*ShortestPathResult, error) {
	return dijkstraCore(ctx, e, tx, opts, func(model.VID) float64 { return 0 })
}

// AStarOptions adds a caller-supplied heuristic closure to Dijkstra;
// when nil, it falls back to h≡0 and AStar degenerates to Dijkstra, as
// the spec requires.
type AStarOptions struct {
	DijkstraOptions
	Heuristic func(vid model.VID) float64
}

// AStar implements §4.D's A*: f_score = g_score + h(v, target),
// priority ordering by f_score while distance tracking still uses
// g_score (so the reconstructed path is the true shortest one, not an
// artifact of the heuristic).
func AStar(ctx context.Context, e *storage.Engine, tx *storage.Tx, opts AStarOptions) (*ShortestPathResult, error) {
	h := opts.Heuristic
	return dijkstraCore(ctx, e, tx, opts.DijkstraOptions, func(v model.VID) float64 {
		if h == nil {
			return 0
		}
		return h(v)
	})
}

// dijkstraCore backs both Dijkstra (heuristic ≡ 0) and AStar (caller
// heuristic), since A* is defined as "Dijkstra + heuristic" and the
// two share every data structure but the priority function.
func dijkstraCore(ctx context.Context, e *storage.Engine, tx *storage.Tx, opts DijkstraOptions, heuristic func(v model.VID) float64) (*ShortestPathResult, error) {
	res := &ShortestPathResult{}

	targetSet := make(map[string]struct{}, len(opts.Targets))
	for _, t := range opts.Targets {
		targetSet[t.String()] = struct{}{}
	}

	dist := make(map[string]float64)
	paths := make(map[string]*model.NPath)
	visited := make(map[string]struct{})
	loopSeen := make(map[string]struct{})

	pq := newPriorityQueue()
	for _, s := range opts.Sources {
		vx, ok, err := e.GetVertex(tx, opts.Space, s)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		key := s.String()
		dist[key] = 0
		n := model.NewNPath(*vx)
		paths[key] = n
		res.Counters.visitNode()
		pq.push(&pqItem{vidKey: key, priority: heuristic(s), path: n})
	}

	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errs.Execution("TRAVERSAL_CANCELLED", "dijkstra cancelled", err)
		}
		item := pq.pop()
		key := item.vidKey
		if _, done := visited[key]; done {
			continue
		}
		visited[key] = struct{}{}
		n := item.path.(*model.NPath)
		res.Counters.reachDepth(n.Len())

		if _, isTarget := targetSet[key]; isTarget {
			res.Paths = append(res.Paths, n.Materialize())
			if opts.SingleShortest || targetSetAtLimit(opts.Limit, len(res.Paths)) {
				return res, nil
			}
			continue
		}

		steps, err := neighbors(ctx, e, tx, opts.Space, n.Vertex().VID, opts.Direction, opts.Filter, &res.Counters)
		if err != nil {
			return nil, err
		}
		steps = selfLoopDedup(steps, loopSeen)
		for _, s := range steps {
			nk := s.Dst.VID.String()
			if _, done := visited[nk]; done {
				continue
			}
			alt := dist[key] + weightOf(s.Edge, opts.WeightProperty)
			if prev, ok := dist[nk]; !ok || alt < prev {
				dist[nk] = alt
				child := n.Extend(s.Edge, s.Dst)
				paths[nk] = child
				res.Counters.visitNode()
				pq.push(&pqItem{vidKey: nk, priority: alt + heuristic(s.Dst.VID), path: child})
			}
		}
	}
	return res, nil
}
