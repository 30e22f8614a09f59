package planner_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/catalog"
)

const testSpace = "default"

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New(zerolog.Nop())
	_, err := cat.CreateSpace(catalog.Space{Name: testSpace})
	require.NoError(t, err)
	return cat
}
