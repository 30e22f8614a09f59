// Type deduction visitor (§4.E): walks an expression bottom-up
// producing its static result type, using the binary/unary/function/
// aggregate rules of §3 and consulting the catalog for property
// access on a vertex/edge-typed variable. Grounded on
// original_source/src/query/optimizer/deduce_type_visitor.rs's
// DeduceTypeVisitor, simplified to this module's AST (no validator
// ColumnDef input list — TypeEnv below plays that role) and its value
// Kind enum instead of a separate DataType.
package planner

import (
	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/value"
)

// TypeEnv resolves the static type information a deduction needs that
// isn't carried on the expression tree itself: a bound row variable's
// value kind, and — for a variable bound to a vertex or edge — which
// tag or edge-type schema its properties should be looked up against.
type TypeEnv interface {
	VariableKind(name string) (value.Kind, bool)
	EntitySchema(name string) (target string, isEdge bool, ok bool)
}

// DeduceType returns e's statically-determined result Kind, or
// value.KindNull when the type can't be pinned down ahead of
// execution (an unbound parameter, a property the catalog doesn't
// know, or a function this visitor doesn't special-case) — matching
// §4.E's fallback for values not yet knowable without row data.
func DeduceType(cat *catalog.Catalog, space string, env TypeEnv, e expr.Expr) value.Kind {
	switch n := e.(type) {
	case expr.Literal:
		return n.Value.Kind

	case expr.Variable:
		if k, ok := env.VariableKind(n.Name); ok {
			return k
		}
		return value.KindNull

	case expr.Parameter:
		// Parameters bind at execute time; nothing here names their
		// declared type, so the safe answer is "unknown".
		return value.KindNull

	case expr.PropertyAccess:
		return deducePropertyType(cat, space, env, n)

	case expr.Binary:
		l := DeduceType(cat, space, env, n.Left)
		r := DeduceType(cat, space, env, n.Right)
		return value.BinaryResultType(binaryResultOp(n.Op), l, r)

	case expr.Unary:
		if n.Op == expr.OpNot {
			return value.KindBool
		}
		return DeduceType(cat, space, env, n.Operand) // OpNeg preserves numeric kind

	case expr.ListLiteral:
		return value.KindList

	case expr.FunctionCall:
		return deduceFunctionType(cat, space, env, n)
	}
	return value.KindNull
}

// binaryResultOp maps expr.BinaryOp's Go-style operator spellings
// onto the operator strings value.BinaryResultType expects (the
// executor's own equality check also spells "=" as "==" internally,
// via Binary.Eval's switch — only the planner's static-typing entry
// point needs the translation).
func binaryResultOp(op expr.BinaryOp) string {
	if op == expr.OpEq {
		return "="
	}
	return string(op)
}

func deducePropertyType(cat *catalog.Catalog, space string, env TypeEnv, p expr.PropertyAccess) value.Kind {
	v, isVar := p.Entity.(expr.Variable)
	if !isVar {
		return value.KindNull
	}
	target, isEdge, ok := env.EntitySchema(v.Name)
	if !ok {
		return value.KindNull
	}
	var props []catalog.PropertyDef
	if isEdge {
		et, ok := cat.GetEdgeType(space, target)
		if !ok {
			return value.KindNull
		}
		props = et.Properties
	} else {
		tag, ok := cat.GetTag(space, target)
		if !ok {
			return value.KindNull
		}
		props = tag.Properties
	}
	for _, pd := range props {
		if pd.Name == p.Property {
			return dataTypeKind(pd.Type)
		}
	}
	return value.KindNull
}

func dataTypeKind(t catalog.DataType) value.Kind {
	switch t {
	case catalog.TBool:
		return value.KindBool
	case catalog.TInt64:
		return value.KindInt
	case catalog.TDouble:
		return value.KindFloat
	case catalog.TString:
		return value.KindString
	case catalog.TDate:
		return value.KindDate
	case catalog.TTime:
		return value.KindTime
	case catalog.TDateTime:
		return value.KindDateTime
	case catalog.TDuration:
		return value.KindDuration
	case catalog.TList:
		return value.KindList
	case catalog.TMap:
		return value.KindMap
	}
	return value.KindNull
}

// deduceFunctionType gives a precise return type for the functions
// §4.E / internal/expr's registry defines a clear result shape for,
// falling back to the argument's own type (scalar passthrough
// functions like abs()) or KindNull when nothing more specific is
// known.
func deduceFunctionType(cat *catalog.Catalog, space string, env TypeEnv, f expr.FunctionCall) value.Kind {
	switch f.Name {
	case "COUNT":
		return value.KindInt
	case "COLLECT":
		return value.KindList
	case "TOUPPER", "TOLOWER":
		return value.KindString
	case "LENGTH":
		return value.KindInt
	case "NOW":
		return value.KindDateTime
	case "SUM", "AVG", "MIN", "MAX", "ABS":
		if len(f.Args) == 1 {
			return DeduceType(cat, space, env, f.Args[0])
		}
		return value.KindNull
	case "COALESCE":
		for _, a := range f.Args {
			if k := DeduceType(cat, space, env, a); k != value.KindNull {
				return k
			}
		}
		return value.KindNull
	}
	return value.KindNull
}
