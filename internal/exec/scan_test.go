package exec_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/value"
)

func newScanFixture(t *testing.T) (*storage.Engine, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New(zerolog.Nop())
	_, err := cat.CreateSpace(catalog.Space{Name: "default"})
	require.NoError(t, err)
	eng, err := storage.NewEngine(cat, "", zerolog.Nop())
	require.NoError(t, err)
	return eng, cat
}

func insertVertex(t *testing.T, eng *storage.Engine, vid int64, tag string, props map[string]value.Value) {
	t.Helper()
	tx := eng.Begin(storage.Snapshot)
	vx := &model.Vertex{VID: model.IntVID(vid), Tags: []model.Tag{{Name: tag, Properties: props}}, Properties: props}
	require.NoError(t, eng.InsertVertex(tx, "default", vx))
	require.NoError(t, tx.Commit())
}

func TestStartYieldsOneEmptyRowThenEmpty(t *testing.T) {
	s := exec.NewStart()
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Len(t, res.Rows[0], 0)

	res, err = s.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exec.ResultEmpty, res.Kind)
}

func TestScanVerticesByTagReturnsEntityColumn(t *testing.T) {
	eng, _ := newScanFixture(t)
	insertVertex(t, eng, 1, "Person", map[string]value.Value{"name": value.String("ada")})
	insertVertex(t, eng, 2, "Company", nil)

	tx := eng.Begin(storage.Snapshot)
	s := exec.NewScan(eng, tx, "default", "Person", false)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"__entity"}, res.Columns)
}

func TestScanAllVerticesWhenTargetEmpty(t *testing.T) {
	eng, _ := newScanFixture(t)
	insertVertex(t, eng, 1, "Person", nil)
	insertVertex(t, eng, 2, "Company", nil)

	tx := eng.Begin(storage.Snapshot)
	s := exec.NewScan(eng, tx, "default", "", false)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestScanIsOneShot(t *testing.T) {
	eng, _ := newScanFixture(t)
	insertVertex(t, eng, 1, "Person", nil)

	tx := eng.Begin(storage.Snapshot)
	s := exec.NewScan(eng, tx, "default", "Person", false)
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	_, err := s.Execute(context.Background())
	require.NoError(t, err)
	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exec.ResultEmpty, res.Kind)
}

func TestIndexScanUniqueLookupProjectsIDColumn(t *testing.T) {
	eng, _ := newScanFixture(t)
	insertVertex(t, eng, 1, "Person", map[string]value.Value{"name": value.String("ada")})

	tx := eng.Begin(storage.Snapshot)
	eng.IndexPut(tx, "default", "by_name", "ada", "1")
	require.NoError(t, tx.Commit())

	tx2 := eng.Begin(storage.Snapshot)
	s := exec.NewIndexScan(eng, tx2, "default", "by_name", "Person", false, exec.ScanUnique, exec.ScanLimits{Exact: value.String("ada")})
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, value.Equal(res.Rows[0][0], value.Int(1)).IsTrue())
}

func TestIndexScanReturnsRequestedColumns(t *testing.T) {
	eng, _ := newScanFixture(t)
	insertVertex(t, eng, 1, "Person", map[string]value.Value{"name": value.String("ada")})

	tx := eng.Begin(storage.Snapshot)
	eng.IndexPut(tx, "default", "by_name", "ada", "1")
	require.NoError(t, tx.Commit())

	tx2 := eng.Begin(storage.Snapshot)
	s := exec.NewIndexScan(eng, tx2, "default", "by_name", "Person", false, exec.ScanUnique, exec.ScanLimits{Exact: value.String("ada")})
	s.ReturnCols = []string{"name"}
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, value.Equal(res.Rows[0][0], value.String("ada")).IsTrue())
}

func TestIndexScanSkipsUnmatchedFilter(t *testing.T) {
	eng, _ := newScanFixture(t)
	insertVertex(t, eng, 1, "Person", map[string]value.Value{"name": value.String("ada")})

	tx := eng.Begin(storage.Snapshot)
	eng.IndexPut(tx, "default", "by_name", "ada", "1")
	require.NoError(t, tx.Commit())

	tx2 := eng.Begin(storage.Snapshot)
	s := exec.NewIndexScan(eng, tx2, "default", "by_name", "Person", false, exec.ScanUnique, exec.ScanLimits{Exact: value.String("ada")})
	s.Filter = func(row *exec.Row) (bool, error) { return false, nil }
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestIndexScanEdgeTargetSkipsRows(t *testing.T) {
	eng, _ := newScanFixture(t)
	tx := eng.Begin(storage.Snapshot)
	eng.IndexPut(tx, "default", "by_weight", "5", "e1")
	require.NoError(t, tx.Commit())

	tx2 := eng.Begin(storage.Snapshot)
	s := exec.NewIndexScan(eng, tx2, "default", "by_weight", "knows", true, exec.ScanUnique, exec.ScanLimits{Exact: value.String("5")})
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Rows, "edge-target index lookups are not resolved by IndexScan directly")
}

func TestFulltextIndexScanDelegatesAndShapesRows(t *testing.T) {
	search := func(ctx context.Context, query string, limit int) ([]exec.FulltextHit, error) {
		return []exec.FulltextHit{{EntityID: "1", Score: 0.9}, {EntityID: "2", Score: 0.5}}, nil
	}
	f := exec.NewFulltextIndexScan(search, "ada", 10)
	require.NoError(t, f.Open(context.Background()))
	defer f.Close()

	res, err := f.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"entity", "score"}, res.Columns)
	assert.True(t, value.Equal(res.Rows[0][0], value.String("1")).IsTrue())
}
