// Package expr defines the expression AST shared by the executor
// (Filter/Project/Aggregate predicates) and the planner (predicate
// splitting, constant folding, type deduction). It replaces the
// teacher's string-sliced expression evaluator in
// pkg/cypher/operators.go (hasOperatorOutsideQuotes, splitByOperator,
// evaluateArithmeticExpr and friends, which re-parse a raw Cypher
// substring on every evaluation) with a parsed tree evaluated once
// per row against the value package's tagged union.
package expr

import (
	"fmt"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/value"
)

// Env resolves the free variables and property accesses an
// expression may reference while evaluating against one row.
type Env interface {
	Variable(name string) (value.Value, bool)
	Property(entity value.Value, prop string) (value.Value, bool)
	Parameter(name string) (value.Value, bool)
}

// Expr is any node of the expression tree.
type Expr interface {
	Eval(env Env) (value.Value, error)
}

// Literal is a constant value.
type Literal struct{ Value value.Value }

func (l Literal) Eval(Env) (value.Value, error) { return l.Value, nil }

// Variable resolves a bound row variable (e.g. `n` in `MATCH (n)`).
type Variable struct{ Name string }

func (v Variable) Eval(env Env) (value.Value, error) {
	if val, ok := env.Variable(v.Name); ok {
		return val, nil
	}
	return value.Null(), nil
}

// Parameter resolves a query parameter (`$name`).
type Parameter struct{ Name string }

func (p Parameter) Eval(env Env) (value.Value, error) {
	if val, ok := env.Parameter(p.Name); ok {
		return val, nil
	}
	return value.Null(), nil
}

// PropertyAccess evaluates `entity.prop`.
type PropertyAccess struct {
	Entity   Expr
	Property string
}

func (p PropertyAccess) Eval(env Env) (value.Value, error) {
	ev, err := p.Entity.Eval(env)
	if err != nil {
		return value.Value{}, err
	}
	if v, ok := env.Property(ev, p.Property); ok {
		return v, nil
	}
	return value.Null(), nil
}

// BinaryOp is one of the comparison/arithmetic/logical/string
// operators named in §3's type compatibility table.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
	OpEq  BinaryOp = "=="
	OpNe  BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="
	OpAnd BinaryOp = "AND"
	OpOr  BinaryOp = "OR"
	OpXor BinaryOp = "XOR"
)

// IsRelational reports whether op is one of the six comparison
// operators the planner's predicate-splitting and index-pushdown
// rules classify as indexable (§4.E).
func (op BinaryOp) IsRelational() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Binary is a two-operand expression.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

func (b Binary) Eval(env Env) (value.Value, error) {
	if b.Op == OpAnd || b.Op == OpOr {
		return b.evalLogical(env)
	}
	l, err := b.Left.Eval(env)
	if err != nil {
		return value.Value{}, err
	}
	r, err := b.Right.Eval(env)
	if err != nil {
		return value.Value{}, err
	}
	switch b.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return value.Arith(string(b.Op), l, r), nil
	case OpEq:
		return value.Equal(l, r), nil
	case OpNe:
		return value.Not(value.Equal(l, r)), nil
	case OpLt:
		return value.Less(l, r), nil
	case OpLe:
		return value.Or(value.Less(l, r), value.Equal(l, r)), nil
	case OpGt:
		return value.Not(value.Or(value.Less(l, r), value.Equal(l, r))), nil
	case OpGe:
		return value.Not(value.Less(l, r)), nil
	case OpXor:
		return value.Xor(l, r), nil
	default:
		return value.Value{}, errs.Execution("UNKNOWN_OPERATOR", fmt.Sprintf("unknown binary operator %q", b.Op), nil)
	}
}

// evalLogical short-circuits AND/OR, matching the teacher's
// evaluateLogicalAnd/Or short-circuit behavior.
func (b Binary) evalLogical(env Env) (value.Value, error) {
	l, err := b.Left.Eval(env)
	if err != nil {
		return value.Value{}, err
	}
	if b.Op == OpAnd && l.IsFalse() {
		return value.Bool(false), nil
	}
	if b.Op == OpOr && l.IsTrue() {
		return value.Bool(true), nil
	}
	r, err := b.Right.Eval(env)
	if err != nil {
		return value.Value{}, err
	}
	if b.Op == OpAnd {
		return value.And(l, r), nil
	}
	return value.Or(l, r), nil
}

// UnaryOp negation/not.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "NOT"
)

type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (u Unary) Eval(env Env) (value.Value, error) {
	v, err := u.Operand.Eval(env)
	if err != nil {
		return value.Value{}, err
	}
	switch u.Op {
	case OpNeg:
		return value.Arith("-", value.Int(0), v), nil
	case OpNot:
		return value.Not(v), nil
	default:
		return value.Value{}, errs.Execution("UNKNOWN_OPERATOR", fmt.Sprintf("unknown unary operator %q", u.Op), nil)
	}
}

// ListLiteral constructs a list value from sub-expressions.
type ListLiteral struct{ Items []Expr }

func (l ListLiteral) Eval(env Env) (value.Value, error) {
	vals := make([]value.Value, len(l.Items))
	for i, it := range l.Items {
		v, err := it.Eval(env)
		if err != nil {
			return value.Value{}, err
		}
		vals[i] = v
	}
	return value.List(vals), nil
}

// FunctionCall is a scalar or aggregate function invocation. The
// executor/planner resolve Name against the registry in
// internal/expr/functions.go.
type FunctionCall struct {
	Name string
	Args []Expr
}

func (f FunctionCall) Eval(env Env) (value.Value, error) {
	fn, ok := Lookup(f.Name)
	if !ok {
		return value.Value{}, errs.Execution("UNKNOWN_FUNCTION", fmt.Sprintf("unknown function %q", f.Name), nil)
	}
	args := make([]value.Value, len(f.Args))
	for i, a := range f.Args {
		v, err := a.Eval(env)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	return fn.Call(args)
}

// IsAggregate reports whether Name refers to one of the aggregate
// functions in §4.C's AggregateFunctions set, as opposed to a scalar
// function.
func (f FunctionCall) IsAggregate() bool {
	_, ok := aggregateNames[f.Name]
	return ok
}
