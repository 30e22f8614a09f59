package exec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/value"
)

func leftRows() exec.ExecutionResult {
	return exec.ValuesResult([]string{"lid", "lname"}, [][]value.Value{
		{value.Int(1), value.String("a")},
		{value.Int(2), value.String("b")},
	})
}

func rightRows() exec.ExecutionResult {
	return exec.ValuesResult([]string{"rid", "rval"}, [][]value.Value{
		{value.Int(1), value.String("x")},
		{value.Int(3), value.String("y")},
	})
}

func TestInnerJoinMatchesOnKey(t *testing.T) {
	l, r := newStatic(leftRows()), newStatic(rightRows())
	j := exec.NewJoin(l, r, []int{0}, []int{0}, exec.JoinInner, true)

	res, err := j.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, value.Equal(res.Rows[0][0], value.Int(1)).IsTrue())
	assert.True(t, value.Equal(res.Rows[0][1], value.String("a")).IsTrue())
	assert.True(t, value.Equal(res.Rows[0][2], value.Int(1)).IsTrue())
	assert.True(t, value.Equal(res.Rows[0][3], value.String("x")).IsTrue())
}

func TestLeftJoinKeepsUnmatchedLeftRows(t *testing.T) {
	l, r := newStatic(leftRows()), newStatic(rightRows())
	j := exec.NewJoin(l, r, []int{0}, []int{0}, exec.JoinLeft, false) // probe=left, build=right

	res, err := j.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	var sawUnmatched bool
	for _, row := range res.Rows {
		if value.Equal(row[0], value.Int(2)).IsTrue() {
			sawUnmatched = true
			assert.True(t, row[2].IsNull())
			assert.True(t, row[3].IsNull())
		}
	}
	assert.True(t, sawUnmatched, "expected unmatched left row id=2 to survive a left join")
}

func TestOuterJoinKeepsBothUnmatchedSides(t *testing.T) {
	l, r := newStatic(leftRows()), newStatic(rightRows())
	j := exec.NewJoin(l, r, []int{0}, []int{0}, exec.JoinOuter, true)

	res, err := j.Execute(context.Background())
	require.NoError(t, err)
	// matched(1) + unmatched-left(2) + unmatched-right(3) = 3 rows.
	require.Len(t, res.Rows, 3)

	var sawUnmatchedBuildSide bool
	for _, row := range res.Rows {
		require.Len(t, row, 4, "every output row must be padded to the full column width")
		if value.Equal(row[0], value.Int(2)).IsTrue() {
			sawUnmatchedBuildSide = true
			assert.True(t, row[2].IsNull())
			assert.True(t, row[3].IsNull())
		}
	}
	assert.True(t, sawUnmatchedBuildSide, "expected unmatched build-side row id=2 to be present and null-padded")
}

func TestCartesianJoinProducesCrossProduct(t *testing.T) {
	l, r := newStatic(leftRows()), newStatic(rightRows())
	j := exec.NewJoin(l, r, nil, nil, exec.JoinCartesian, true)

	res, err := j.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 4) // 2 left * 2 right
}

func TestJoinNonValuesResultYieldsEmpty(t *testing.T) {
	l := newStatic(exec.CountResult(1))
	r := newStatic(rightRows())
	j := exec.NewJoin(l, r, []int{0}, []int{0}, exec.JoinInner, true)

	res, err := j.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exec.ResultEmpty, res.Kind)
}
