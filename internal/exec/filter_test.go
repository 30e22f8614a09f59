package exec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/value"
)

func rowsFixture() exec.ExecutionResult {
	return exec.ValuesResult(
		[]string{"age"},
		[][]value.Value{{value.Int(10)}, {value.Int(20)}, {value.Int(30)}},
	)
}

func TestFilterKeepsMatchingRows(t *testing.T) {
	child := newStatic(rowsFixture())
	pred := expr.Binary{Op: expr.OpGt, Left: expr.Variable{Name: "age"}, Right: expr.Literal{Value: value.Int(15)}}
	f := exec.NewFilter(child, pred, nil)

	require.NoError(t, f.Open(context.Background()))
	res, err := f.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, exec.ResultValues, res.Kind)
	assert.Len(t, res.Rows, 2)
	require.NoError(t, f.Close())
}

func TestFilterPassesThroughNonValuesResult(t *testing.T) {
	child := newStatic(exec.CountResult(3))
	pred := expr.Literal{Value: value.Bool(true)}
	f := exec.NewFilter(child, pred, nil)

	res, err := f.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exec.ResultCount, res.Kind)
	assert.Equal(t, uint64(3), res.Count)
}

func TestProjectEvaluatesExpressionsAndRenamesColumns(t *testing.T) {
	child := newStatic(rowsFixture())
	p := exec.NewProject(child,
		[]expr.Expr{expr.Binary{Op: expr.OpMul, Left: expr.Variable{Name: "age"}, Right: expr.Literal{Value: value.Int(2)}}},
		[]string{"doubled"}, nil)

	res, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"doubled"}, res.Columns)
	require.Len(t, res.Rows, 3)
	assert.True(t, value.Equal(res.Rows[0][0], value.Int(20)).IsTrue())
}

func TestLimitCapsRows(t *testing.T) {
	child := newStatic(rowsFixture())
	l := exec.NewLimit(child, 2)
	res, err := l.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestLimitLargerThanInputIsNoop(t *testing.T) {
	child := newStatic(rowsFixture())
	l := exec.NewLimit(child, 100)
	res, err := l.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
}

func TestSkipDropsLeadingRows(t *testing.T) {
	child := newStatic(rowsFixture())
	s := exec.NewSkip(child, 1)
	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.True(t, value.Equal(res.Rows[0][0], value.Int(20)).IsTrue())
}

func TestSkipBeyondInputYieldsEmpty(t *testing.T) {
	child := newStatic(rowsFixture())
	s := exec.NewSkip(child, 100)
	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 0)
}
