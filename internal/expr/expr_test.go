package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/value"
)

// fakeEnv is a minimal expr.Env backed by plain maps, standing in for
// a real row/parameter binding.
type fakeEnv struct {
	vars   map[string]value.Value
	params map[string]value.Value
	props  map[string]value.Value // keyed by property name only; entity is ignored
}

func (e fakeEnv) Variable(name string) (value.Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e fakeEnv) Parameter(name string) (value.Value, bool) {
	v, ok := e.params[name]
	return v, ok
}

func (e fakeEnv) Property(entity value.Value, prop string) (value.Value, bool) {
	v, ok := e.props[prop]
	return v, ok
}

func TestLiteralEval(t *testing.T) {
	l := expr.Literal{Value: value.Int(42)}
	v, err := l.Eval(fakeEnv{})
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(42)).IsTrue())
}

func TestVariableEvalMissingIsNull(t *testing.T) {
	v, err := expr.Variable{Name: "n"}.Eval(fakeEnv{vars: map[string]value.Value{}})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestVariableEvalBound(t *testing.T) {
	env := fakeEnv{vars: map[string]value.Value{"n": value.Int(7)}}
	v, err := expr.Variable{Name: "n"}.Eval(env)
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(7)).IsTrue())
}

func TestParameterEval(t *testing.T) {
	env := fakeEnv{params: map[string]value.Value{"limit": value.Int(10)}}
	v, err := expr.Parameter{Name: "limit"}.Eval(env)
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(10)).IsTrue())

	missing, err := expr.Parameter{Name: "other"}.Eval(env)
	require.NoError(t, err)
	assert.True(t, missing.IsNull())
}

func TestPropertyAccessEval(t *testing.T) {
	env := fakeEnv{props: map[string]value.Value{"name": value.String("alice")}}
	pa := expr.PropertyAccess{Entity: expr.Variable{Name: "n"}, Property: "name"}
	v, err := pa.Eval(env)
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.String("alice")).IsTrue())
}

func TestBinaryArithmetic(t *testing.T) {
	b := expr.Binary{Op: expr.OpAdd, Left: expr.Literal{Value: value.Int(2)}, Right: expr.Literal{Value: value.Int(3)}}
	v, err := b.Eval(fakeEnv{})
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(5)).IsTrue())
}

func TestBinaryComparisons(t *testing.T) {
	env := fakeEnv{}
	cases := []struct {
		op       expr.BinaryOp
		l, r     value.Value
		expected bool
	}{
		{expr.OpEq, value.Int(1), value.Int(1), true},
		{expr.OpNe, value.Int(1), value.Int(2), true},
		{expr.OpLt, value.Int(1), value.Int(2), true},
		{expr.OpLe, value.Int(2), value.Int(2), true},
		{expr.OpGt, value.Int(3), value.Int(2), true},
		{expr.OpGe, value.Int(2), value.Int(2), true},
	}
	for _, c := range cases {
		b := expr.Binary{Op: c.op, Left: expr.Literal{Value: c.l}, Right: expr.Literal{Value: c.r}}
		v, err := b.Eval(env)
		require.NoError(t, err)
		if c.expected {
			assert.True(t, v.IsTrue(), "op=%s l=%v r=%v", c.op, c.l, c.r)
		} else {
			assert.True(t, v.IsFalse(), "op=%s l=%v r=%v", c.op, c.l, c.r)
		}
	}
}

func TestBinaryLogicalShortCircuit(t *testing.T) {
	// Right side would error if evaluated; AND with a false left must
	// short-circuit and never touch it.
	boom := panicExpr{}
	b := expr.Binary{Op: expr.OpAnd, Left: expr.Literal{Value: value.Bool(false)}, Right: boom}
	v, err := b.Eval(fakeEnv{})
	require.NoError(t, err)
	assert.True(t, v.IsFalse())

	orB := expr.Binary{Op: expr.OpOr, Left: expr.Literal{Value: value.Bool(true)}, Right: boom}
	v, err = orB.Eval(fakeEnv{})
	require.NoError(t, err)
	assert.True(t, v.IsTrue())
}

type panicExpr struct{}

func (panicExpr) Eval(expr.Env) (value.Value, error) {
	panic("should not be evaluated due to short-circuit")
}

func TestBinaryXor(t *testing.T) {
	b := expr.Binary{Op: expr.OpXor, Left: expr.Literal{Value: value.Bool(true)}, Right: expr.Literal{Value: value.Bool(false)}}
	v, err := b.Eval(fakeEnv{})
	require.NoError(t, err)
	assert.True(t, v.IsTrue())
}

func TestUnaryNegAndNot(t *testing.T) {
	neg := expr.Unary{Op: expr.OpNeg, Operand: expr.Literal{Value: value.Int(5)}}
	v, err := neg.Eval(fakeEnv{})
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(-5)).IsTrue())

	not := expr.Unary{Op: expr.OpNot, Operand: expr.Literal{Value: value.Bool(true)}}
	v, err = not.Eval(fakeEnv{})
	require.NoError(t, err)
	assert.True(t, v.IsFalse())
}

func TestListLiteralEval(t *testing.T) {
	l := expr.ListLiteral{Items: []expr.Expr{expr.Literal{Value: value.Int(1)}, expr.Literal{Value: value.Int(2)}}}
	v, err := l.Eval(fakeEnv{})
	require.NoError(t, err)
	require.Equal(t, value.KindList, v.Kind)
	assert.Len(t, v.List(), 2)
}

func TestFunctionCallUnknownFunctionErrors(t *testing.T) {
	fc := expr.FunctionCall{Name: "NOPE", Args: nil}
	_, err := fc.Eval(fakeEnv{})
	assert.Error(t, err)
}

func TestFunctionCallIsAggregate(t *testing.T) {
	assert.True(t, expr.FunctionCall{Name: "COUNT"}.IsAggregate())
	assert.True(t, expr.FunctionCall{Name: "SUM"}.IsAggregate())
	assert.False(t, expr.FunctionCall{Name: "ABS"}.IsAggregate())
}

func TestIsRelational(t *testing.T) {
	assert.True(t, expr.OpEq.IsRelational())
	assert.True(t, expr.OpLt.IsRelational())
	assert.False(t, expr.OpAnd.IsRelational())
	assert.False(t, expr.OpAdd.IsRelational())
}
