package traversal

import (
	"context"
	"math/rand"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
)

// ExpandOptions configures a single-step neighborhood expansion
// (§4.D Expand): seed vertices, direction, an optional edge-type
// filter, a max depth, and optional per-depth StepLimits triggering
// reservoir sampling when a frontier would otherwise exceed the cap.
type ExpandOptions struct {
	Space      string
	Seeds      []model.VID
	Direction  model.Direction
	Filter     EdgeFilter
	MaxDepth   int
	StepLimits []int // StepLimits[d] caps the frontier admitted at depth d+1; nil means unbounded
	Rand       *rand.Rand
}

// ExpandResult is the multiset of vertices reachable from the seeds
// within MaxDepth, each visited at most once across the whole
// expansion (§4.D invariant).
type ExpandResult struct {
	Vertices []model.Vertex
	Counters Counters
}

// Expand implements §4.D's Expand: breadth-first growth from Seeds,
// admitting each vertex at most once, applying reservoir sampling at
// any depth whose StepLimits entry is smaller than the frontier it
// would otherwise admit.
func Expand(ctx context.Context, e *storage.Engine, tx *storage.Tx, opts ExpandOptions) (*ExpandResult, error) {
	res := &ExpandResult{}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	visited := make(map[string]struct{}, len(opts.Seeds))
	frontier := make([]model.VID, 0, len(opts.Seeds))
	for _, s := range opts.Seeds {
		if _, dup := visited[s.String()]; dup {
			continue
		}
		visited[s.String()] = struct{}{}
		frontier = append(frontier, s)
		vx, ok, err := e.GetVertex(tx, opts.Space, s)
		if err != nil {
			return nil, err
		}
		if ok {
			res.Counters.visitNode()
			res.Vertices = append(res.Vertices, *vx)
		}
	}
	res.Counters.reachDepth(0)

	if opts.MaxDepth == 0 {
		return res, nil
	}

	for depth := 0; depth < opts.MaxDepth; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, errs.Execution("TRAVERSAL_CANCELLED", "expand cancelled", err)
		}
		var allSteps []model.Step
		for _, vid := range frontier {
			steps, err := neighbors(ctx, e, tx, opts.Space, vid, opts.Direction, opts.Filter, &res.Counters)
			if err != nil {
				return nil, err
			}
			allSteps = append(allSteps, steps...)
		}

		if depth < len(opts.StepLimits) && opts.StepLimits[depth] > 0 {
			allSteps = reservoirSample(allSteps, opts.StepLimits[depth], rng)
		}

		var nextFrontier []model.VID
		for _, s := range allSteps {
			vid := s.Dst.VID
			if _, dup := visited[vid.String()]; dup {
				continue
			}
			visited[vid.String()] = struct{}{}
			nextFrontier = append(nextFrontier, vid)
			res.Counters.visitNode()
			res.Vertices = append(res.Vertices, s.Dst)
		}
		res.Counters.reachDepth(depth + 1)
		if len(nextFrontier) == 0 {
			break
		}
		frontier = nextFrontier
	}
	return res, nil
}

// ExpandAllOptions configures the DFS path-enumeration form of Expand
// (§4.D ExpandAll).
type ExpandAllOptions struct {
	Space     string
	Seeds     []model.VID
	Direction model.Direction
	Filter    EdgeFilter
	MaxDepth  int // default 3, per spec
}

// ExpandAllResult is every path discovered from the seeds, plus
// traversal counters.
type ExpandAllResult struct {
	Paths    []model.Path
	Counters Counters
}

// ExpandAll implements §4.D's DFS path enumeration: "At each step it
// records the (edge, destination) taken and recurses. When a neighbor
// is already on the current path, a path including that cyclic edge is
// emitted but recursion terminates along that branch."
func ExpandAll(ctx context.Context, e *storage.Engine, tx *storage.Tx, opts ExpandAllOptions) (*ExpandAllResult, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	res := &ExpandAllResult{}

	var walk func(chain *model.NPath, depth int) error
	walk = func(chain *model.NPath, depth int) error {
		if err := ctx.Err(); err != nil {
			return errs.Execution("TRAVERSAL_CANCELLED", "expand_all cancelled", err)
		}
		res.Counters.reachDepth(depth)
		if depth >= maxDepth {
			return nil
		}
		steps, err := neighbors(ctx, e, tx, opts.Space, chain.Vertex().VID, opts.Direction, opts.Filter, &res.Counters)
		if err != nil {
			return err
		}
		for _, s := range steps {
			res.Counters.visitNode()
			next := chain.Extend(s.Edge, s.Dst)
			res.Paths = append(res.Paths, next.Materialize())
			if chain.Contains(s.Dst.VID) {
				// cyclic edge: the path including it was emitted above,
				// but recursion must not continue along this branch.
				continue
			}
			if err := walk(next, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, seed := range opts.Seeds {
		vx, ok, err := e.GetVertex(tx, opts.Space, seed)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		res.Counters.visitNode()
		root := model.NewNPath(*vx)
		res.Paths = append(res.Paths, root.Materialize())
		if err := walk(root, 0); err != nil {
			return nil, err
		}
	}
	return res, nil
}
