package planner

import "github.com/rs/zerolog"

// OptRule is one optimizer rewrite rule (§4.E). Pattern reports
// whether the rule's shape matches n (without mutating anything);
// Apply attempts the rewrite and returns the replacement node plus
// true, or (nil, false) if the match didn't actually produce a
// rewrite (e.g. a predicate split left nothing pushable).
type OptRule interface {
	Name() string
	Pattern(ctx *OptContext, n *PlanNode) bool
	Apply(ctx *OptContext, n *PlanNode) (*PlanNode, bool)
}

// Engine applies a fixed rule set to an OptContext until a full pass
// produces no further rewrite or maxPasses is reached — a simple
// fixpoint loop, since the spec names no particular rule ordering or
// cost-based search strategy beyond the representative rules
// themselves.
type Engine struct {
	Rules     []OptRule
	MaxPasses int
	Log       zerolog.Logger
}

// NewEngine builds an Engine with the representative rule set of
// §4.E in the order listed there: index pushdown first (so later
// passes see IndexScans instead of bare Scans), then the union-merge
// and reordering rules, then constant folding last since folding can
// only help once the tree shape above it has settled.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		Rules: []OptRule{
			PushFilterIntoIndexScan{},
			IndexFullScanRewrite{},
			UnionAllIndexScanMerge{},
			JoinReorder{},
			ProjectionPushdown{},
			ConstantFolding{},
		},
		MaxPasses: 8,
		Log:       log,
	}
}

// Optimize runs the rule set to a fixpoint and returns the number of
// passes that actually rewrote something.
func (e *Engine) Optimize(ctx *OptContext) int {
	passes := 0
	for ; passes < e.MaxPasses; passes++ {
		changed := false
		var matched []NodeID
		ctx.Walk(func(n *PlanNode) { matched = append(matched, n.ID) })
		for _, id := range matched {
			n := ctx.Node(id)
			if n == nil {
				continue
			}
			for _, r := range e.Rules {
				if !r.Pattern(ctx, n) {
					continue
				}
				if rewritten, ok := r.Apply(ctx, n); ok {
					ctx.Replace(n.ID, rewritten)
					e.Log.Debug().Str("rule", r.Name()).Int("node", int(n.ID)).Msg("optimizer rewrite applied")
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return passes
}
