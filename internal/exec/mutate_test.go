package exec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/value"
)

func TestMutateVerticesInsertAutoCreatesTagAndWrites(t *testing.T) {
	eng, cat := newScanFixture(t)
	tx := eng.Begin(storage.Snapshot)

	writes := []exec.VertexWrite{{Vertex: model.Vertex{
		VID:        model.IntVID(1),
		Tags:       []model.Tag{{Name: "Person", Properties: map[string]value.Value{"name": value.String("ada")}}},
		Properties: map[string]value.Value{"name": value.String("ada")},
	}}}
	m := exec.NewMutateVertices(eng, cat, tx, "default", "insert", writes, nil)
	require.NoError(t, m.Open(context.Background()))
	defer m.Close()

	res, err := m.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exec.ResultCount, res.Kind)
	require.NoError(t, tx.Commit())

	if _, ok := cat.GetTag("default", "Person"); !ok {
		t.Fatalf("inserting an undeclared tag must auto-create its schema")
	}

	tx2 := eng.Begin(storage.Snapshot)
	got, ok, err := eng.GetVertex(tx2, "default", model.IntVID(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(got.Properties["name"], value.String("ada")).IsTrue())
}

func TestMutateVerticesInsertRejectsPropertyTypeMismatch(t *testing.T) {
	eng, cat := newScanFixture(t)
	_, err := cat.CreateTag("default", catalog.TagSchema{
		Name:       "Person",
		Properties: []catalog.PropertyDef{{Name: "age", Type: catalog.TInt64, Nullable: false}},
	})
	require.NoError(t, err)

	tx := eng.Begin(storage.Snapshot)
	writes := []exec.VertexWrite{{Vertex: model.Vertex{
		VID:  model.IntVID(1),
		Tags: []model.Tag{{Name: "Person", Properties: map[string]value.Value{"age": value.String("not-a-number")}}},
	}}}
	m := exec.NewMutateVertices(eng, cat, tx, "default", "insert", writes, nil)
	require.NoError(t, m.Open(context.Background()))
	defer m.Close()

	_, err = m.Execute(context.Background())
	assert.Error(t, err)
}

func TestMutateVerticesUpdateWithFalseConditionIsSkipped(t *testing.T) {
	eng, cat := newScanFixture(t)
	insertVertex(t, eng, 1, "Person", map[string]value.Value{"age": value.Int(30)})

	tx := eng.Begin(storage.Snapshot)
	writes := []exec.VertexWrite{{
		Vertex:    model.Vertex{VID: model.IntVID(1), Tags: []model.Tag{{Name: "Person", Properties: map[string]value.Value{"age": value.Int(99)}}}, Properties: map[string]value.Value{"age": value.Int(99)}},
		Condition: expr.Literal{Value: value.Bool(false)},
	}}
	m := exec.NewMutateVertices(eng, cat, tx, "default", "update", writes, nil)
	require.NoError(t, m.Open(context.Background()))
	defer m.Close()

	res, err := m.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Count)
	require.NoError(t, tx.Commit())

	tx2 := eng.Begin(storage.Snapshot)
	got, _, _ := eng.GetVertex(tx2, "default", model.IntVID(1))
	assert.True(t, value.Equal(got.Properties["age"], value.Int(30)).IsTrue(), "a false condition must skip the update entirely")
}

func TestMutateVerticesUpdateInsertableOnMissingRow(t *testing.T) {
	eng, cat := newScanFixture(t)
	tx := eng.Begin(storage.Snapshot)
	writes := []exec.VertexWrite{{
		Vertex:     model.Vertex{VID: model.IntVID(1), Tags: []model.Tag{{Name: "Person"}}, Properties: map[string]value.Value{}},
		Condition:  expr.Literal{Value: value.Bool(false)},
		Insertable: true,
	}}
	m := exec.NewMutateVertices(eng, cat, tx, "default", "update", writes, nil)
	require.NoError(t, m.Open(context.Background()))
	defer m.Close()

	res, err := m.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Count)
}

func TestMutateVerticesDeleteRemovesVertex(t *testing.T) {
	eng, cat := newScanFixture(t)
	insertVertex(t, eng, 1, "Person", nil)

	tx := eng.Begin(storage.Snapshot)
	writes := []exec.VertexWrite{{Vertex: model.Vertex{VID: model.IntVID(1)}}}
	m := exec.NewMutateVertices(eng, cat, tx, "default", "delete", writes, nil)
	require.NoError(t, m.Open(context.Background()))
	defer m.Close()
	_, err := m.Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2 := eng.Begin(storage.Snapshot)
	_, ok, _ := eng.GetVertex(tx2, "default", model.IntVID(1))
	assert.False(t, ok)
}

func TestMutateEdgesInsertThenUpdateThenDelete(t *testing.T) {
	eng, _ := newScanFixture(t)

	key := model.EdgeKey{Src: model.IntVID(1), Dst: model.IntVID(2), Type: "knows", Rank: 0}

	tx := eng.Begin(storage.Snapshot)
	insertWrites := []exec.EdgeWrite{{Edge: model.Edge{EdgeKey: key, Properties: map[string]value.Value{"since": value.Int(2020)}}}}
	insertOp := exec.NewMutateEdges(eng, tx, "default", "insert", insertWrites)
	require.NoError(t, insertOp.Open(context.Background()))
	_, err := insertOp.Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, insertOp.Close())
	require.NoError(t, tx.Commit())

	tx2 := eng.Begin(storage.Snapshot)
	updateWrites := []exec.EdgeWrite{{Edge: model.Edge{EdgeKey: key, Properties: map[string]value.Value{"since": value.Int(2021)}}}}
	updateOp := exec.NewMutateEdges(eng, tx2, "default", "update", updateWrites)
	require.NoError(t, updateOp.Open(context.Background()))
	_, err = updateOp.Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, updateOp.Close())
	require.NoError(t, tx2.Commit())

	tx3 := eng.Begin(storage.Snapshot)
	got, ok, err := eng.GetEdge(tx3, "default", key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(got.Properties["since"], value.Int(2021)).IsTrue())

	deleteWrites := []exec.EdgeWrite{{Edge: model.Edge{EdgeKey: key}}}
	deleteOp := exec.NewMutateEdges(eng, tx3, "default", "delete", deleteWrites)
	require.NoError(t, deleteOp.Open(context.Background()))
	_, err = deleteOp.Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, deleteOp.Close())
	require.NoError(t, tx3.Commit())

	tx4 := eng.Begin(storage.Snapshot)
	_, ok, err = eng.GetEdge(tx4, "default", key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMutateEdgesUpdateInsertableOnMissingEdge(t *testing.T) {
	eng, _ := newScanFixture(t)
	key := model.EdgeKey{Src: model.IntVID(1), Dst: model.IntVID(2), Type: "knows", Rank: 0}

	tx := eng.Begin(storage.Snapshot)
	writes := []exec.EdgeWrite{{Edge: model.Edge{EdgeKey: key}, Insertable: true}}
	op := exec.NewMutateEdges(eng, tx, "default", "update", writes)
	require.NoError(t, op.Open(context.Background()))
	defer op.Close()

	res, err := op.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Count)
}

func TestCreateAndDropIndexOp(t *testing.T) {
	_, cat := newScanFixture(t)
	create := exec.NewCreateIndex(cat, "default", exec.IndexDescriptor{Name: "by_name", Target: "Person", Properties: []string{"name"}})
	require.NoError(t, create.Open(context.Background()))
	_, err := create.Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, create.Close())

	if _, ok := cat.GetIndex("default", "by_name"); !ok {
		t.Fatalf("CreateIndexOp must register the index in the catalog")
	}

	drop := exec.NewDropIndex(cat, "default", "by_name")
	require.NoError(t, drop.Open(context.Background()))
	_, err = drop.Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, drop.Close())

	if _, ok := cat.GetIndex("default", "by_name"); ok {
		t.Fatalf("DropIndexOp must remove the index from the catalog")
	}
}

func TestDropIndexOpUnknownNameErrors(t *testing.T) {
	_, cat := newScanFixture(t)
	drop := exec.NewDropIndex(cat, "default", "nonexistent")
	require.NoError(t, drop.Open(context.Background()))
	defer drop.Close()
	_, err := drop.Execute(context.Background())
	assert.Error(t, err)
}
