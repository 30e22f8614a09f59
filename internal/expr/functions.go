// Scalar and aggregate function registry, grounded on the teacher's
// pkg/cypher built-in function dispatch (string/math/list helpers
// invoked from evaluateArithmeticExpr's call sites), generalized into
// a registry table keyed by function name rather than a chain of
// string-prefix checks.
package expr

import (
	"math"
	"strings"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/value"
)

// Func is a scalar function callable from a FunctionCall node.
type Func struct {
	Name           string
	Deterministic  bool
	Call           func(args []value.Value) (value.Value, error)
}

var registry = map[string]Func{}

func register(f Func) { registry[f.Name] = f }

// Lookup resolves a function by name (case-insensitive, matching the
// teacher's Cypher function dispatch).
func Lookup(name string) (Func, bool) {
	f, ok := registry[strings.ToUpper(name)]
	return f, ok
}

// aggregateNames enumerates the aggregate function set of §4.C so
// FunctionCall.IsAggregate and the planner's "contains_aggregate"
// analysis can classify a call without a second registry.
var aggregateNames = map[string]struct{}{
	"COUNT": {}, "SUM": {}, "AVG": {}, "MIN": {}, "MAX": {},
	"COLLECT": {}, "DISTINCT": {}, "PERCENTILE": {}, "STD": {},
	"BITAND": {}, "BITOR": {}, "GROUPCONCAT": {},
}

// nonDeterministicNames backs the planner's is_deterministic analysis
// (§4.E): "false if any call to now/rand/uuid/row_number/etc."
var nonDeterministicNames = map[string]struct{}{
	"NOW": {}, "RAND": {}, "UUID": {}, "ROW_NUMBER": {}, "TIMESTAMP": {},
}

func IsDeterministic(name string) bool {
	_, nd := nonDeterministicNames[strings.ToUpper(name)]
	return !nd
}

func init() {
	register(Func{Name: "ABS", Deterministic: true, Call: func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, errs.Execution("ARITY", "abs() takes exactly one argument", nil)
		}
		v := args[0]
		if v.IsNull() {
			return value.Null(), nil
		}
		if v.Kind == value.KindFloat {
			return value.Float(math.Abs(v.Float())), nil
		}
		n := v.Int()
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	}})

	register(Func{Name: "TOUPPER", Deterministic: true, Call: func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind != value.KindString {
			return value.Null(), nil
		}
		return value.String(strings.ToUpper(args[0].Str())), nil
	}})

	register(Func{Name: "TOLOWER", Deterministic: true, Call: func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind != value.KindString {
			return value.Null(), nil
		}
		return value.String(strings.ToLower(args[0].Str())), nil
	}})

	register(Func{Name: "LENGTH", Deterministic: true, Call: func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Null(), nil
		}
		switch args[0].Kind {
		case value.KindString:
			return value.Int(int64(len(args[0].Str()))), nil
		case value.KindList, value.KindSet:
			return value.Int(int64(len(args[0].List()))), nil
		}
		return value.Null(), nil
	}})

	register(Func{Name: "COALESCE", Deterministic: true, Call: func(args []value.Value) (value.Value, error) {
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return value.Null(), nil
	}})

	register(Func{Name: "NOW", Deterministic: false, Call: func(args []value.Value) (value.Value, error) {
		return value.Value{}, errs.Execution("NONDETERMINISTIC_IN_PLAN_CONTEXT", "now() must be bound once per query, not re-evaluated per row", nil)
	}})
}
