package exec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/value"
)

func TestRowVariableAndParameter(t *testing.T) {
	r := exec.NewRow(map[string]value.Value{"limit": value.Int(10)})
	r.Set("n", value.Int(1))

	v, ok := r.Variable("n")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.Int(1)).IsTrue())

	_, ok = r.Variable("missing")
	assert.False(t, ok)

	p, ok := r.Parameter("limit")
	require.True(t, ok)
	assert.True(t, value.Equal(p, value.Int(10)).IsTrue())
}

func TestRowCloneIsIndependent(t *testing.T) {
	r := exec.NewRow(nil)
	r.Set("n", value.Int(1))

	cp := r.Clone()
	cp.Set("n", value.Int(2))

	orig, _ := r.Variable("n")
	cloned, _ := cp.Variable("n")
	assert.True(t, value.Equal(orig, value.Int(1)).IsTrue())
	assert.True(t, value.Equal(cloned, value.Int(2)).IsTrue())
}

func TestRowPropertyResolvesVertexAndTagProperties(t *testing.T) {
	vx := model.Vertex{
		VID:        model.IntVID(1),
		Properties: map[string]value.Value{"id": value.Int(1)},
		Tags: []model.Tag{
			{Name: "Person", Properties: map[string]value.Value{"name": value.String("alice")}},
		},
	}
	entity := exec.VertexValue(vx)

	r := exec.NewRow(nil)
	v, ok := r.Property(entity, "id")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.Int(1)).IsTrue())

	v, ok = r.Property(entity, "name")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.String("alice")).IsTrue())

	_, ok = r.Property(entity, "nonexistent")
	assert.False(t, ok)
}

func TestRowPropertyResolvesEdge(t *testing.T) {
	ed := model.Edge{
		EdgeKey:    model.EdgeKey{Src: model.IntVID(1), Dst: model.IntVID(2), Type: "knows"},
		Properties: map[string]value.Value{"since": value.Int(2020)},
	}
	entity := exec.EdgeValue(ed)

	r := exec.NewRow(nil)
	v, ok := r.Property(entity, "since")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.Int(2020)).IsTrue())

	_, ok = r.Property(entity, "nope")
	assert.False(t, ok)
}

func TestRowPropertyOnMapValue(t *testing.T) {
	m := value.Map(map[string]value.Value{"x": value.Int(5)})
	r := exec.NewRow(nil)
	v, ok := r.Property(m, "x")
	require.True(t, ok)
	assert.True(t, value.Equal(v, value.Int(5)).IsTrue())
}

func TestRowPropertyOnNonEntityKindIsMiss(t *testing.T) {
	r := exec.NewRow(nil)
	_, ok := r.Property(value.Int(5), "anything")
	assert.False(t, ok)
}
