package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/planner"
	"github.com/orneryd/nordgraph/internal/query"
	"github.com/orneryd/nordgraph/internal/value"
)

// stubPlanBuilder stands in for the out-of-scope parser/planner:
// Execute never inspects the query string itself, only what Build
// returns, so a fixed plan is enough to exercise the engine.
type stubPlanBuilder struct {
	plan *planner.PlanNode
	err  error
}

func (b *stubPlanBuilder) Build(ctx context.Context, space, queryString string, params map[string]value.Value) (*planner.OptContext, error) {
	if b.err != nil {
		return nil, b.err
	}
	return planner.NewOptContext(nil, space, b.plan), nil
}

func TestEngineExecuteRunsScanToCompletion(t *testing.T) {
	eng, cat := newTestEngine(t)
	seedPerson(t, eng, "p1", 30, "Ada")
	seedPerson(t, eng, "p2", 41, "Grace")

	builder := &stubPlanBuilder{plan: &planner.PlanNode{ID: 0, Kind: planner.KindScan, Scan: &planner.ScanPayload{Target: "person"}}}
	qe := query.NewEngine(eng, cat, builder)

	res, err := qe.Execute(context.Background(), testSpace, "MATCH (n:person) RETURN n", nil)
	require.NoError(t, err)
	require.Nil(t, res.Error)
	require.Equal(t, []string{"__entity"}, res.Columns)
	require.Len(t, res.Rows, 2)
	require.NotEmpty(t, res.Stats.Operators)
	assert.Equal(t, "Scan", res.Stats.Operators[0].Name)
	assert.GreaterOrEqual(t, res.Stats.Operators[0].Rows, int64(2))
}

func TestEngineExecuteRejectsUnboundParameter(t *testing.T) {
	eng, cat := newTestEngine(t)
	builder := &stubPlanBuilder{}
	qe := query.NewEngine(eng, cat, builder)

	res, err := qe.Execute(context.Background(), testSpace, "MATCH (n) WHERE n.age > $minAge RETURN n", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Contains(t, res.Error.Message, "minAge")
}

func TestEngineExecuteSurfacesBuilderError(t *testing.T) {
	eng, cat := newTestEngine(t)
	builder := &stubPlanBuilder{err: assertError{"bad query"}}
	qe := query.NewEngine(eng, cat, builder)

	res, err := qe.Execute(context.Background(), testSpace, "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Error)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
