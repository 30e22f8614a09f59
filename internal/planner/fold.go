// ConstantFolding (§4.E): "fold subtrees of literals; e.g.,
// (5+3)*1 + 0 -> 8." Applied both as a standalone expression rewrite
// (FoldConstants, usable by any caller) and as an OptRule that folds
// every Filter/Project/Sort expression it finds in the plan.
package planner

import "github.com/orneryd/nordgraph/internal/expr"

// FoldConstants recursively folds any subtree whose operands are all
// literals into a single Literal, evaluating it with a nil Env (safe
// since a literal-only subtree never calls Variable/Parameter/
// Property). The bool return reports whether anything was actually
// folded, so callers can skip rebuilding a PlanNode when nothing
// changed instead of comparing expression trees for equality (some
// expr nodes embed slices and aren't comparable with ==).
func FoldConstants(e expr.Expr) (expr.Expr, bool) {
	switch n := e.(type) {
	case expr.Binary:
		l, lc := FoldConstants(n.Left)
		r, rc := FoldConstants(n.Right)
		if isLiteral(l) && isLiteral(r) {
			if v, err := (expr.Binary{Op: n.Op, Left: l, Right: r}).Eval(nil); err == nil {
				return expr.Literal{Value: v}, true
			}
		}
		if lc || rc {
			return expr.Binary{Op: n.Op, Left: l, Right: r}, true
		}
		return n, false

	case expr.Unary:
		operand, oc := FoldConstants(n.Operand)
		if isLiteral(operand) {
			if v, err := (expr.Unary{Op: n.Op, Operand: operand}).Eval(nil); err == nil {
				return expr.Literal{Value: v}, true
			}
		}
		if oc {
			return expr.Unary{Op: n.Op, Operand: operand}, true
		}
		return n, false

	case expr.ListLiteral:
		items := make([]expr.Expr, len(n.Items))
		allLit, any := true, false
		for i, it := range n.Items {
			folded, c := FoldConstants(it)
			items[i] = folded
			any = any || c
			if !isLiteral(folded) {
				allLit = false
			}
		}
		if allLit {
			if v, err := (expr.ListLiteral{Items: items}).Eval(nil); err == nil {
				return expr.Literal{Value: v}, true
			}
		}
		if any {
			return expr.ListLiteral{Items: items}, true
		}
		return n, false

	case expr.PropertyAccess:
		entity, c := FoldConstants(n.Entity)
		if !c {
			return n, false
		}
		return expr.PropertyAccess{Entity: entity, Property: n.Property}, true

	case expr.FunctionCall:
		args := make([]expr.Expr, len(n.Args))
		allLit, any := true, false
		for i, a := range n.Args {
			folded, c := FoldConstants(a)
			args[i] = folded
			any = any || c
			if !isLiteral(folded) {
				allLit = false
			}
		}
		// A non-deterministic function (now(), rand(), ...) must not be
		// folded even if every argument happens to be a literal: folding
		// would freeze its one-shot result across every row instead of
		// the query-bound-once semantics §4.E's is_deterministic flag
		// exists to protect. Aggregates fold per-group, not per-call, so
		// they're excluded here too.
		fn := expr.FunctionCall{Name: n.Name, Args: args}
		if allLit && expr.IsDeterministic(n.Name) && !fn.IsAggregate() {
			if v, err := fn.Eval(nil); err == nil {
				return expr.Literal{Value: v}, true
			}
		}
		if any {
			return fn, true
		}
		return n, false

	default:
		return e, false
	}
}

func isLiteral(e expr.Expr) bool {
	_, ok := e.(expr.Literal)
	return ok
}

// ConstantFolding is the OptRule wrapper over FoldConstants, applied
// to every plan node carrying an expression the rule set above knows
// how to reach (Filter's predicate, Project's expressions, Sort's
// keys).
type ConstantFolding struct{}

func (ConstantFolding) Name() string { return "ConstantFolding" }

func (ConstantFolding) Pattern(ctx *OptContext, n *PlanNode) bool {
	switch n.Kind {
	case KindFilter, KindProject, KindSort:
		return true
	}
	return false
}

func (ConstantFolding) Apply(ctx *OptContext, n *PlanNode) (*PlanNode, bool) {
	changed := false
	out := n.Clone()
	out.ID = ctx.NewID()

	switch n.Kind {
	case KindFilter:
		folded, c := FoldConstants(n.Filter.Predicate)
		if c {
			out.Filter = &FilterPayload{Predicate: folded}
			changed = true
		}
	case KindProject:
		exprs := make([]expr.Expr, len(n.Project.Exprs))
		for i, e := range n.Project.Exprs {
			folded, c := FoldConstants(e)
			exprs[i] = folded
			changed = changed || c
		}
		if changed {
			out.Project = &ProjectPayload{Exprs: exprs, Aliases: n.Project.Aliases}
		}
	case KindSort:
		keys := make([]SortKey, len(n.Sort.Keys))
		for i, k := range n.Sort.Keys {
			folded, c := FoldConstants(k.Expr)
			keys[i] = SortKey{Expr: folded, Descending: k.Descending}
			changed = changed || c
		}
		if changed {
			out.Sort = &SortPayload{Keys: keys, Limit: n.Sort.Limit}
		}
	}

	if !changed {
		return nil, false
	}
	return out, true
}
