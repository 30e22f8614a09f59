// Predicate splitting (§4.E): a conjunction is decomposed into a
// pushable set (every conjunct references only indexed properties
// through an indexable operator) and a residual set, by walking the
// expression AST and classifying each conjunct. Grounded on
// original_source/src/query/optimizer/index_optimization.rs, which
// performs the same split before building its own scan limits.
package planner

import "github.com/orneryd/nordgraph/internal/expr"

// conjuncts flattens a tree of AND nodes into its leaf conjuncts. A
// non-AND root is returned as a single-element slice.
func conjuncts(e expr.Expr) []expr.Expr {
	b, ok := e.(expr.Binary)
	if !ok || b.Op != expr.OpAnd {
		return []expr.Expr{e}
	}
	return append(conjuncts(b.Left), conjuncts(b.Right)...)
}

// indexedProperty reports whether conjunct is a simple
// `PropertyAccess(entityVar) <relop> Literal` (or the mirrored
// `Literal <relop> PropertyAccess`) over a property in indexed,
// returning the property name, the literal, the operator (normalized
// so the property access is always on the left), and whether the shape
// matched at all.
func indexedProperty(e expr.Expr, indexed map[string]struct{}) (prop string, op expr.BinaryOp, lit expr.Literal, ok bool) {
	b, isBinary := e.(expr.Binary)
	if !isBinary || !b.Op.IsRelational() {
		return "", "", expr.Literal{}, false
	}
	if pa, isProp := b.Left.(expr.PropertyAccess); isProp {
		if l, isLit := b.Right.(expr.Literal); isLit {
			if _, has := indexed[pa.Property]; has {
				return pa.Property, b.Op, l, true
			}
		}
	}
	if pa, isProp := b.Right.(expr.PropertyAccess); isProp {
		if l, isLit := b.Left.(expr.Literal); isLit {
			if _, has := indexed[pa.Property]; has {
				return pa.Property, mirror(b.Op), l, true
			}
		}
	}
	return "", "", expr.Literal{}, false
}

// mirror flips a relational operator's sides, e.g. `v < prop` means
// `prop > v`.
func mirror(op expr.BinaryOp) expr.BinaryOp {
	switch op {
	case expr.OpLt:
		return expr.OpGt
	case expr.OpLe:
		return expr.OpGe
	case expr.OpGt:
		return expr.OpLt
	case expr.OpGe:
		return expr.OpLe
	default:
		return op
	}
}

// SplitResult is the outcome of splitting a predicate against an
// index's columns: the conjuncts folded into per-column limits, and
// whatever conjuncts remain as a residual filter.
type SplitResult struct {
	Limits   []ColumnLimit
	Residual expr.Expr
}

// SplitForIndex splits predicate's conjuncts against indexCols (an
// index's declared property list, in declaration order so the output
// Limits order matches §8 Scenario 4), folding every pushable conjunct
// into a ColumnLimit per §4.E and returning the rest (conjuncts over
// non-indexed properties, or non-indexable operators) as a residual
// AND-conjunction.
func SplitForIndex(predicate expr.Expr, indexCols []string) SplitResult {
	indexed := make(map[string]struct{}, len(indexCols))
	for _, c := range indexCols {
		indexed[c] = struct{}{}
	}

	byCol := make(map[string]*ColumnLimit)
	var order []string
	var residual []expr.Expr

	for _, c := range conjuncts(predicate) {
		prop, op, lit, matched := indexedProperty(c, indexed)
		if !matched {
			residual = append(residual, c)
			continue
		}
		cl, seen := byCol[prop]
		if !seen {
			cl = &ColumnLimit{Column: prop}
			byCol[prop] = cl
			order = append(order, prop)
		}
		switch op {
		case expr.OpEq:
			cl.Begin, cl.End = lit.Value, lit.Value
		case expr.OpGt, expr.OpGe:
			cl.Begin = lit.Value
		case expr.OpLt, expr.OpLe:
			cl.End = lit.Value
		default:
			residual = append(residual, c)
		}
	}

	limits := make([]ColumnLimit, 0, len(order))
	for _, col := range order {
		limits = append(limits, *byCol[col])
	}
	return SplitResult{Limits: limits, Residual: reconjoin(residual)}
}

// reconjoin rebuilds an AND-tree from a conjunct list, returning nil
// for an empty list (no residual at all).
func reconjoin(cs []expr.Expr) expr.Expr {
	if len(cs) == 0 {
		return nil
	}
	out := cs[0]
	for _, c := range cs[1:] {
		out = expr.Binary{Op: expr.OpAnd, Left: out, Right: c}
	}
	return out
}
