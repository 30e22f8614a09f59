package exec_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/value"
)

func TestExecutionResultConstructorsAndLen(t *testing.T) {
	assert.Equal(t, 0, exec.Empty().Len())
	assert.Equal(t, 1, exec.CountResult(5).Len())
	assert.Equal(t, uint64(5), exec.CountResult(5).Count)

	vr := exec.ValuesResult([]string{"a"}, [][]value.Value{{value.Int(1)}, {value.Int(2)}})
	assert.Equal(t, 2, vr.Len())

	vx := exec.VerticesResult([]model.Vertex{{VID: model.IntVID(1)}})
	assert.Equal(t, 1, vx.Len())

	ed := exec.EdgesResult([]model.Edge{{}})
	assert.Equal(t, 1, ed.Len())

	ps := exec.PathsResult([]model.Path{{}})
	assert.Equal(t, 1, ps.Len())
}

func TestStatsAccumulate(t *testing.T) {
	s := exec.NewStats()
	s.AddRow(3)
	s.AddRow(2)
	s.AddExecTime(10 * time.Millisecond)
	s.AddTotalTime(20 * time.Millisecond)
	s.AddStat("plan", "scan")

	rows, execTime, totalTime, custom := s.Snapshot()
	assert.Equal(t, int64(5), rows)
	assert.Equal(t, 10*time.Millisecond, execTime)
	assert.Equal(t, 20*time.Millisecond, totalTime)
	assert.Equal(t, "scan", custom["plan"])
}

func TestBaseBookkeeping(t *testing.T) {
	b := exec.NewBase("Test", "a test operator")
	assert.Equal(t, "Test", b.Name())
	assert.Equal(t, "a test operator", b.Description())
	assert.NotZero(t, b.ID())
	assert.NotNil(t, b.Stats())
	assert.False(t, b.IsOpen())

	b.MarkOpen()
	assert.True(t, b.IsOpen())
	b.MarkClosed()
	assert.False(t, b.IsOpen())
}

func TestBaseAssignsDistinctIDs(t *testing.T) {
	a := exec.NewBase("A", "")
	b := exec.NewBase("B", "")
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestCancelToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tok := exec.NewCancelToken(ctx)
	assert.False(t, tok.Cancelled())

	cancel()
	assert.True(t, tok.Cancelled())
	assert.Error(t, tok.Err())
}
