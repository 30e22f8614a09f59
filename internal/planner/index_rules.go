// Index-pushdown rules (§4.E): PushFilterIntoIndexScan,
// IndexFullScanRewrite, UnionAllIndexScanMerge. Grounded on
// original_source/src/query/optimizer/index_optimization.rs, which
// performs the same three rewrites over its own plan representation.
package planner

import (
	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/value"
)

// PushFilterIntoIndexScan folds a Filter's pushable conjuncts into its
// child IndexScan's limits, per §4.E: "when a Filter feeds an
// IndexScan and the filter's conjuncts reference only indexed
// properties with relational operators, fold pushable conjuncts into
// the scan's scan_limits ... and either drop the filter or retain it
// with the non-pushable remainder." (§8 Scenario 4.)
type PushFilterIntoIndexScan struct{}

func (PushFilterIntoIndexScan) Name() string { return "PushFilterIntoIndexScan" }

func (PushFilterIntoIndexScan) Pattern(ctx *OptContext, n *PlanNode) bool {
	if n.Kind != KindFilter || len(n.Inputs) != 1 {
		return false
	}
	child := ctx.Input(n, 0)
	return child != nil && child.Kind == KindIndexScan
}

func (r PushFilterIntoIndexScan) Apply(ctx *OptContext, n *PlanNode) (*PlanNode, bool) {
	child := ctx.Input(n, 0)
	scan := child.IndexScan
	idx, ok := ctx.Cat.GetIndex(ctx.Space, scan.IndexName)
	if !ok || len(idx.Properties) == 0 {
		return nil, false
	}
	split := SplitForIndex(n.Filter.Predicate, idx.Properties)
	if len(split.Limits) == 0 {
		return nil, false
	}

	newScan := child.Clone()
	newScan.ID = ctx.NewID()
	newScan.IndexScan = &IndexScanPayload{
		IndexName:    scan.IndexName,
		Target:       scan.Target,
		TargetIsEdge: scan.TargetIsEdge,
		ScanType:     indexScanType(split.Limits),
		Limits:       split.Limits,
		Residual:     split.Residual,
	}
	ctx.index(newScan)

	if split.Residual == nil {
		return newScan, true
	}
	out := n.Clone()
	out.ID = ctx.NewID()
	out.Inputs = []NodeID{newScan.ID}
	out.Filter = &FilterPayload{Predicate: split.Residual}
	return out, true
}

// indexScanType classifies the folded limits into the access patterns
// of §4.C's ScanType: every column pinned to a single value (Begin ==
// End, both set) is a unique lookup; anything else is a range scan.
func indexScanType(limits []ColumnLimit) string {
	for _, l := range limits {
		if l.Begin == nil || l.End == nil {
			return "range"
		}
		// Values are compared through value.Equal rather than Go's ==:
		// value.Value embeds slice/map fields and is not safe to compare
		// with == even when holding a scalar kind at runtime.
		bv, bok := l.Begin.(value.Value)
		ev, eok := l.End.(value.Value)
		if !bok || !eok || !value.Equal(bv, ev).IsTrue() {
			return "range"
		}
	}
	return "unique"
}

// IndexFullScanRewrite detects an IndexScan left with no effective
// filter (no limits folded in at all) and hints that a table scan, or
// a union of prefix scans, may cost less than reading the whole index
// — per §4.E: "detects an IndexScan with no effective filter and hints
// an alternative." The hint is recorded as EstCost so downstream
// cost-based rules (or a human reading EXPLAIN output) can see the
// scan is unselective; it does not itself replace the node, since
// choosing the alternative requires statistics this rule doesn't own.
type IndexFullScanRewrite struct{}

func (IndexFullScanRewrite) Name() string { return "IndexFullScanRewrite" }

func (IndexFullScanRewrite) Pattern(ctx *OptContext, n *PlanNode) bool {
	return n.Kind == KindIndexScan && len(n.IndexScan.Limits) == 0
}

func (IndexFullScanRewrite) Apply(ctx *OptContext, n *PlanNode) (*PlanNode, bool) {
	stats := ctx.Cat.Stats(ctx.Space)
	fullCost := float64(stats.RowCount) * 1.0
	if n.EstCost == fullCost {
		// Already priced as a full scan by a previous pass; nothing
		// further to rewrite.
		return nil, false
	}
	out := n.Clone()
	out.ID = ctx.NewID()
	out.EstCost = fullCost
	out.EstRows = stats.RowCount
	return out, true
}

// UnionAllIndexScanMerge merges sibling IndexScans under a UnionAll
// that share target and scan type into a single scan whose filter is
// the OR of the originals and whose limits are the union, per §4.E.
// Non-mergeable siblings are instead reordered by estimated cost
// (cheapest first), so a short-circuiting consumer sees the selective
// branch first.
type UnionAllIndexScanMerge struct{}

func (UnionAllIndexScanMerge) Name() string { return "UnionAllIndexScanMerge" }

func (UnionAllIndexScanMerge) Pattern(ctx *OptContext, n *PlanNode) bool {
	if n.Kind != KindUnionAll || len(n.Inputs) < 2 {
		return false
	}
	for _, id := range n.Inputs {
		in := ctx.Node(id)
		if in == nil || in.Kind != KindIndexScan {
			return false
		}
	}
	return true
}

func (r UnionAllIndexScanMerge) Apply(ctx *OptContext, n *PlanNode) (*PlanNode, bool) {
	var mergeable, rest []*PlanNode
	first := ctx.Input(n, 0).IndexScan
	for _, id := range n.Inputs {
		in := ctx.Node(id)
		s := in.IndexScan
		if s.Target == first.Target && s.TargetIsEdge == first.TargetIsEdge && s.ScanType == first.ScanType {
			mergeable = append(mergeable, in)
		} else {
			rest = append(rest, in)
		}
	}
	if len(mergeable) < 2 {
		if r.reorderByCost(ctx, n) {
			return n, true
		}
		return nil, false
	}

	merged := mergeable[0].Clone()
	merged.ID = ctx.NewID()
	ms := *merged.IndexScan
	ms.Limits = unionLimits(mergeable)
	ms.Residual = nil
	for i, m := range mergeable {
		res := m.IndexScan.Residual
		if res == nil {
			// One unfiltered sibling makes the OR unfiltered too.
			ms.Residual = nil
			break
		}
		if i == 0 {
			ms.Residual = res
		} else {
			ms.Residual = expr.Binary{Op: expr.OpOr, Left: ms.Residual, Right: res}
		}
	}
	merged.IndexScan = &ms
	merged.EstCost = mergeable[0].EstCost * 0.8
	ctx.index(merged)

	out := n.Clone()
	out.ID = ctx.NewID()
	out.Inputs = []NodeID{merged.ID}
	for _, r := range rest {
		out.Inputs = append(out.Inputs, r.ID)
	}
	return out, true
}

// unionLimits widens each column present in any sibling scan to cover
// every sibling's range: the broadest Begin/End across all of them,
// and a column missing from any one sibling is dropped entirely (an
// unbounded column in one branch makes the merged scan unbounded on
// that column too).
func unionLimits(nodes []*PlanNode) []ColumnLimit {
	present := make(map[string]int)
	merged := make(map[string]ColumnLimit)
	for _, n := range nodes {
		for _, l := range n.IndexScan.Limits {
			present[l.Column]++
			cur, ok := merged[l.Column]
			if !ok {
				merged[l.Column] = l
				continue
			}
			if cur.Begin != nil && (l.Begin == nil || less(l.Begin, cur.Begin)) {
				cur.Begin = l.Begin
			}
			if cur.End != nil && (l.End == nil || less(cur.End, l.End)) {
				cur.End = l.End
			}
			merged[l.Column] = cur
		}
	}
	var out []ColumnLimit
	for col, count := range present {
		if count == len(nodes) {
			out = append(out, merged[col])
		}
	}
	return out
}

// less orders the opaque ColumnLimit bound values: value.Value bounds
// (what predicate splitting produces) through value.Cmp, any other
// pair by its String() form when both have one.
func less(a, b interface{}) bool {
	if va, ok := a.(value.Value); ok {
		if vb, ok := b.(value.Value); ok {
			return value.Cmp(va, vb) < 0
		}
	}
	type stringer interface{ String() string }
	sa, aok := a.(stringer)
	sb, bok := b.(stringer)
	if aok && bok {
		return sa.String() < sb.String()
	}
	return false
}

func (r UnionAllIndexScanMerge) reorderByCost(ctx *OptContext, n *PlanNode) bool {
	changed := false
	ids := append([]NodeID(nil), n.Inputs...)
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0; j-- {
			a, b := ctx.Node(ids[j-1]), ctx.Node(ids[j])
			if a.EstCost > b.EstCost {
				ids[j-1], ids[j] = ids[j], ids[j-1]
				changed = true
			}
		}
	}
	if changed {
		n.Inputs = ids
	}
	return changed
}
