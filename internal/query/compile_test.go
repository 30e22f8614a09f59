package query_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/planner"
	"github.com/orneryd/nordgraph/internal/query"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/value"
)

const testSpace = "default"

func newTestEngine(t *testing.T) (*storage.Engine, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New(zerolog.Nop())
	_, err := cat.CreateSpace(catalog.Space{Name: testSpace})
	require.NoError(t, err)
	_, err = cat.CreateTag(testSpace, catalog.TagSchema{Name: "person", Properties: []catalog.PropertyDef{
		{Name: "age", Type: catalog.TInt64},
		{Name: "name", Type: catalog.TString},
	}})
	require.NoError(t, err)

	eng, err := storage.NewEngine(cat, "", zerolog.Nop())
	require.NoError(t, err)
	return eng, cat
}

func seedPerson(t *testing.T, eng *storage.Engine, vid string, age int64, name string) {
	t.Helper()
	tx := eng.Begin(storage.Snapshot)
	err := eng.InsertVertex(tx, testSpace, &model.Vertex{
		VID:  model.StringVID(vid),
		Tags: []model.Tag{{Name: "person", Properties: map[string]value.Value{"age": value.Int(age), "name": value.String(name)}}},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func runToCompletion(t *testing.T, op exec.Operator) exec.ExecutionResult {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, op.Open(ctx))
	defer op.Close()
	res, err := op.Execute(ctx)
	require.NoError(t, err)
	return res
}

// scannedVertices unwraps a Scan's "__entity"-column ValuesResult back
// into plain vertices, for assertions that don't care about row shape.
func scannedVertices(t *testing.T, res exec.ExecutionResult) []model.Vertex {
	t.Helper()
	require.Equal(t, exec.ResultValues, res.Kind)
	require.Equal(t, []string{"__entity"}, res.Columns)
	out := make([]model.Vertex, len(res.Rows))
	for i, row := range res.Rows {
		vx, ok := row[0].Graph().(model.Vertex)
		require.True(t, ok)
		out[i] = vx
	}
	return out
}

func TestCompileScanReturnsAllVertices(t *testing.T) {
	eng, cat := newTestEngine(t)
	seedPerson(t, eng, "p1", 30, "Ada")
	seedPerson(t, eng, "p2", 41, "Grace")

	tx := eng.Begin(storage.Snapshot)
	n := &planner.PlanNode{ID: 0, Kind: planner.KindScan, Scan: &planner.ScanPayload{Target: "person"}}
	octx := planner.NewOptContext(cat, testSpace, n)

	op, err := query.Compile(context.Background(), octx, query.CompileDeps{Engine: eng, Tx: tx, Catalog: cat, Space: testSpace})
	require.NoError(t, err)

	res := runToCompletion(t, op)
	require.Len(t, scannedVertices(t, res), 2)
}

func TestCompileFilterKeepsMatchingRows(t *testing.T) {
	eng, cat := newTestEngine(t)
	seedPerson(t, eng, "p1", 30, "Ada")
	seedPerson(t, eng, "p2", 10, "Young")

	tx := eng.Begin(storage.Snapshot)
	scan := &planner.PlanNode{ID: 0, Kind: planner.KindScan, Scan: &planner.ScanPayload{Target: "person"}}
	predicate := expr.Binary{
		Op:    expr.OpGt,
		Left:  expr.PropertyAccess{Entity: expr.Variable{Name: "__entity"}, Property: "age"},
		Right: expr.Literal{Value: value.Int(18)},
	}
	filter := &planner.PlanNode{ID: 1, Kind: planner.KindFilter, Inputs: []planner.NodeID{0}, Filter: &planner.FilterPayload{Predicate: predicate}}
	octx := planner.NewOptContext(cat, testSpace, filter, scan)

	op, err := query.Compile(context.Background(), octx, query.CompileDeps{Engine: eng, Tx: tx, Catalog: cat, Space: testSpace})
	require.NoError(t, err)

	res := runToCompletion(t, op)
	vertices := scannedVertices(t, res)
	require.Len(t, vertices, 1)
	require.Equal(t, model.StringVID("p1"), vertices[0].VID)
}

func TestCompileLimitCapsRows(t *testing.T) {
	eng, cat := newTestEngine(t)
	for i := 0; i < 5; i++ {
		seedPerson(t, eng, string(rune('a'+i)), int64(20+i), "x")
	}

	tx := eng.Begin(storage.Snapshot)
	scan := &planner.PlanNode{ID: 0, Kind: planner.KindScan, Scan: &planner.ScanPayload{Target: "person"}}
	limit := &planner.PlanNode{ID: 1, Kind: planner.KindLimit, Inputs: []planner.NodeID{0}, Limit: &planner.LimitPayload{Count: 2}}
	octx := planner.NewOptContext(cat, testSpace, limit, scan)

	op, err := query.Compile(context.Background(), octx, query.CompileDeps{Engine: eng, Tx: tx, Catalog: cat, Space: testSpace})
	require.NoError(t, err)

	res := runToCompletion(t, op)
	require.Len(t, scannedVertices(t, res), 2)
}

func TestCompileIndexScanUniqueLookup(t *testing.T) {
	eng, cat := newTestEngine(t)
	_, err := cat.CreateIndex(testSpace, catalog.Index{
		Name: "idx_person_age", Target: "person", Kind: catalog.IndexOnTag, Properties: []string{"age"},
	})
	require.NoError(t, err)

	seedPerson(t, eng, "p1", 30, "Ada")
	seedPerson(t, eng, "p2", 41, "Grace")

	tx := eng.Begin(storage.Snapshot)
	eng.IndexPut(tx, testSpace, "idx_person_age", value.HashKey(value.Int(30)), "p1")
	eng.IndexPut(tx, testSpace, "idx_person_age", value.HashKey(value.Int(41)), "p2")

	scan := &planner.PlanNode{ID: 0, Kind: planner.KindIndexScan, IndexScan: &planner.IndexScanPayload{
		IndexName: "idx_person_age",
		Target:    "person",
		Limits:    []planner.ColumnLimit{{Column: "age", Begin: value.Int(30), End: value.Int(30)}},
	}}
	octx := planner.NewOptContext(cat, testSpace, scan)

	op, err := query.Compile(context.Background(), octx, query.CompileDeps{Engine: eng, Tx: tx, Catalog: cat, Space: testSpace})
	require.NoError(t, err)

	res := runToCompletion(t, op)
	require.Equal(t, exec.ResultValues, res.Kind)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "p1", res.Rows[0][0].String())
}

func TestCompileUnknownIndexErrors(t *testing.T) {
	eng, cat := newTestEngine(t)
	tx := eng.Begin(storage.Snapshot)
	scan := &planner.PlanNode{ID: 0, Kind: planner.KindIndexScan, IndexScan: &planner.IndexScanPayload{IndexName: "missing", Target: "person"}}
	octx := planner.NewOptContext(cat, testSpace, scan)

	_, err := query.Compile(context.Background(), octx, query.CompileDeps{Engine: eng, Tx: tx, Catalog: cat, Space: testSpace})
	require.Error(t, err)
}
