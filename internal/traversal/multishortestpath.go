// MultiShortestPath (§4.D): forms paths between [sources] x [targets]
// by building one left-frontier (from all sources) and one
// right-frontier (from all targets), then joining at each step.
// Grounded on the same frontier-stepping primitives as BidirectionalBFS
// in shortestpath.go; the termination map and per-meet-point
// parallelization are this operation's own additions.
package traversal

import (
	"context"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
)

// MultiShortestPathOptions names the source/target sets to cross and
// the threshold above which a round's meet points join in parallel.
type MultiShortestPathOptions struct {
	ShortestPathOptions
	ParallelThreshold int // meet_points >= this triggers parallel joining; default 16
}

// MultiShortestPath implements the batched form of §4.D: every
// (source, target) pair is tracked in a termination map of
// still_searching booleans; the whole search stops early once every
// pair has either found its shortest path or exhausted its search
// space.
func MultiShortestPath(ctx context.Context, e *storage.Engine, tx *storage.Tx, opts MultiShortestPathOptions) (*ShortestPathResult, error) {
	res := &ShortestPathResult{}

	threshold := opts.ParallelThreshold
	if threshold <= 0 {
		threshold = 16
	}

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
	for _, t := range opts.Targets {
		vx, ok, err := e.GetVertex(tx, opts.Space, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		res.Counters.visitNode()
		n := model.NewNPath(*vx)
		right[t.String()] = n
		rightFrontier = append(rightFrontier, n)
	}

	// termination[src][dst] = still searching; a pair is removed once
	// it has produced a path or its side of the frontier has gone dry.
	termination := make(map[string]map[string]bool, len(opts.Sources))
	for _, s := range opts.Sources {
		row := make(map[string]bool, len(opts.Targets))
		for _, t := range opts.Targets {
			row[t.String()] = true
		}
		termination[s.String()] = row
	}
	anyStillSearching := func() bool {
		for _, row := range termination {
			for _, v := range row {
				if v {
					return true
				}
			}
		}
		return false
	}
	markDone := func(srcKey, dstKey string) {
		if row, ok := termination[srcKey]; ok {
			row[dstKey] = false
		}
	}

	// joined remembers which meeting vertices have already been
	// spliced, so a vertex that stays in both frontiers across several
	// rounds (its predecessor in each frontier doesn't change once
	// admitted) isn't rejoined into a duplicate path every round.
	joined := make(map[string]struct{})

	joinRound := func() bool {
		var meetKeys []string
		for key := range left {
			if _, ok := right[key]; ok {
				if _, done := joined[key]; done {
					continue
				}
				meetKeys = append(meetKeys, key)
			}
		}
		if len(meetKeys) == 0 {
			return false
		}
		for _, key := range meetKeys {
			joined[key] = struct{}{}
		}

		type candidate struct {
			path model.Path
			ok   bool
		}
		build := func(key string) candidate {
			leftPath := left[key].Materialize()
			rightPath := right[key].Reverse()
			combined := model.Path{Src: leftPath.Src}
			combined.Steps = append(combined.Steps, leftPath.Steps...)
			combined.Steps = append(combined.Steps, rightPath.Steps...)
			if combined.HasDuplicateEdge() {
				return candidate{}
			}
			return candidate{path: combined, ok: true}
		}

		var found bool
		applyCandidate := func(c candidate) {
			if !c.ok {
				return
			}
			srcKey, dstKey := c.path.Src.VID.String(), c.path.Dst().VID.String()
			if row, ok := termination[srcKey]; ok {
				if stillSearching, tracked := row[dstKey]; tracked && !stillSearching {
					// this (source, target) pair already has its
					// shortest path from an earlier, shallower round.
					return
				}
			}
			res.Paths = append(res.Paths, c.path)
			found = true
			markDone(srcKey, dstKey)
		}
		if len(meetKeys) >= threshold {
			results := exec.ParallelMap(exec.DefaultParallelConfig(), len(meetKeys),
				func(i int) candidate { return build(meetKeys[i]) },
				func(acc []candidate, v candidate) []candidate { return append(acc, v) },
			)
			for _, c := range results {
				applyCandidate(c)
			}
		} else {
			for _, key := range meetKeys {
				applyCandidate(build(key))
			}
		}
		return found
	}

	depth := 0
	const maxRounds = 64
	for anyStillSearching() && depth < maxRounds {
		if err := ctx.Err(); err != nil {
			return nil, errs.Execution("TRAVERSAL_CANCELLED", "multi_shortest_path cancelled", err)
		}
		if len(leftFrontier) == 0 && len(rightFrontier) == 0 {
			break
		}
		if len(leftFrontier) > 0 {
			leftFrontier = stepFrontier(ctx, e, tx, opts.Space, opts.Direction, opts.Filter, leftFrontier, left, leftSeen, &res.Counters)
			depth++
			res.Counters.reachDepth(depth)
			joinRound()
			if !anyStillSearching() {
				break
			}
		}
		if len(rightFrontier) > 0 {
			rightFrontier = stepFrontier(ctx, e, tx, opts.Space, reverseDirection(opts.Direction), opts.Filter, rightFrontier, right, rightSeen, &res.Counters)
			depth++
			res.Counters.reachDepth(depth)
			joinRound()
		}
	}
	return res, nil
}
