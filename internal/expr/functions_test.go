package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/value"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	_, ok := expr.Lookup("abs")
	assert.True(t, ok)
	_, ok = expr.Lookup("ABS")
	assert.True(t, ok)
	_, ok = expr.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestAbsFunction(t *testing.T) {
	fn, ok := expr.Lookup("ABS")
	require.True(t, ok)

	v, err := fn.Call([]value.Value{value.Int(-5)})
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(5)).IsTrue())

	v, err = fn.Call([]value.Value{value.Float(-2.5)})
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Float(2.5)).IsTrue())

	v, err = fn.Call([]value.Value{value.Null()})
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = fn.Call(nil)
	assert.Error(t, err)
}

func TestToUpperToLower(t *testing.T) {
	upper, _ := expr.Lookup("TOUPPER")
	v, err := upper.Call([]value.Value{value.String("abc")})
	require.NoError(t, err)
	assert.Equal(t, "ABC", v.Str())

	lower, _ := expr.Lookup("TOLOWER")
	v, err = lower.Call([]value.Value{value.String("ABC")})
	require.NoError(t, err)
	assert.Equal(t, "abc", v.Str())

	v, err = upper.Call([]value.Value{value.Int(1)})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestLengthFunction(t *testing.T) {
	fn, _ := expr.Lookup("LENGTH")

	v, err := fn.Call([]value.Value{value.String("hello")})
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(5)).IsTrue())

	v, err = fn.Call([]value.Value{value.List([]value.Value{value.Int(1), value.Int(2)})})
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(2)).IsTrue())

	v, err = fn.Call([]value.Value{value.Int(5)})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestCoalesceFunction(t *testing.T) {
	fn, _ := expr.Lookup("COALESCE")

	v, err := fn.Call([]value.Value{value.Null(), value.Null(), value.Int(3)})
	require.NoError(t, err)
	assert.True(t, value.Equal(v, value.Int(3)).IsTrue())

	v, err = fn.Call([]value.Value{value.Null()})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestNowFunctionErrorsOutsideBindOnce(t *testing.T) {
	fn, ok := expr.Lookup("NOW")
	require.True(t, ok)
	_, err := fn.Call(nil)
	assert.Error(t, err)
}

func TestIsDeterministic(t *testing.T) {
	assert.False(t, expr.IsDeterministic("now"))
	assert.False(t, expr.IsDeterministic("RAND"))
	assert.True(t, expr.IsDeterministic("ABS"))
	assert.True(t, expr.IsDeterministic("unknown_fn"))
}
