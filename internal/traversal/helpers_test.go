package traversal_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/storage/kv/memory"
	"github.com/orneryd/nordgraph/internal/value"
)

const testSpace = "default"

func newTestEngine(t *testing.T) *storage.Engine {
	t.Helper()
	cat := catalog.New(zerolog.Nop())
	_, err := cat.CreateSpace(catalog.Space{Name: testSpace})
	require.NoError(t, err)
	e, err := storage.NewEngine(cat, "", zerolog.Nop(), storage.WithBackend(memory.New()))
	require.NoError(t, err)
	return e
}

func vertex(id string) model.Vertex {
	return model.Vertex{
		VID:  model.StringVID(id),
		Tags: []model.Tag{{Name: "node", Properties: map[string]value.Value{"name": value.String(id)}}},
		Properties: map[string]value.Value{
			"name": value.String(id),
		},
	}
}

func edge(src, dst, edgeType string, rank int64, weight float64) model.Edge {
	return model.Edge{
		EdgeKey: model.EdgeKey{
			Src:  model.StringVID(src),
			Dst:  model.StringVID(dst),
			Type: edgeType,
			Rank: rank,
		},
		Properties: map[string]value.Value{"weight": value.Float(weight)},
	}
}

// buildScenarioGraph builds the spec's literal Scenario 1/2 graph:
// A->B (rank 1), B->C (rank 2), A->D (rank 5), D->C (rank 1), with
// each edge's weight property equal to its rank.
func buildScenarioGraph(t *testing.T, e *storage.Engine) {
	t.Helper()
	tx := e.Begin(storage.Snapshot)
	for _, id := range []string{"A", "B", "C", "D"} {
		vx := vertex(id)
		require.NoError(t, e.InsertVertex(tx, testSpace, &vx))
	}
	edges := []model.Edge{
		edge("A", "B", "connect", 1, 1),
		edge("B", "C", "connect", 2, 2),
		edge("A", "D", "connect", 5, 5),
		edge("D", "C", "connect", 1, 1),
	}
	for _, ed := range edges {
		ed := ed
		require.NoError(t, e.InsertEdge(tx, testSpace, &ed))
	}
	require.NoError(t, tx.Commit())
}
