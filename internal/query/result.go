// Package query implements the engine's top-level Query API (§6):
// execute(ctx, query_string, parameters) -> QueryResult. Query string
// parsing is out of scope for this engine (the planner receives an
// already-built logical plan) — this package owns everything on the
// in-scope side of that boundary: parameter-placeholder validation,
// compiling a planner.OptContext's optimized plan into an exec
// operator tree, pulling it to completion, and shaping the result and
// statistics the caller sees.
package query

import (
	"time"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/value"
)

// ErrorInfo is the `{code, kind, message, operator_id?, span?,
// suggestion?}` shape §7 names for a query's reported failure.
type ErrorInfo = errs.Info

// OperatorStat is one operator's contribution to ExecutorStats,
// mirroring the add_row/add_exec_time/add_total_time/add_stat
// bookkeeping every exec.Operator already performs on its own
// exec.Stats (§4.C).
type OperatorStat struct {
	Name      string
	Rows      int64
	ExecTime  time.Duration
	TotalTime time.Duration
	Custom    map[string]string
}

// ExecutorStats summarizes every operator a query's plan ran through.
type ExecutorStats struct {
	Operators []OperatorStat
}

// QueryResult is the shape `execute` returns to the network/embedded
// front-end (§6): a tabular result plus timing and per-operator
// statistics, or a structured error.
type QueryResult struct {
	Columns         []string
	Rows            [][]value.Value
	ExecutionTimeMs int64
	Stats           ExecutorStats
	Error           *ErrorInfo
}

// fromExecutionResult flattens an exec.ExecutionResult (which may
// carry vertices, edges, or paths rather than a plain row table) into
// QueryResult's row-major shape, matching the `{columns: [string],
// rows: [[Value]]}` contract regardless of the operator tree's
// concrete output kind.
func fromExecutionResult(res exec.ExecutionResult) ([]string, [][]value.Value) {
	switch res.Kind {
	case exec.ResultValues:
		return res.Columns, res.Rows
	case exec.ResultVertices:
		rows := make([][]value.Value, len(res.Vertices))
		for i, v := range res.Vertices {
			rows[i] = []value.Value{exec.VertexValue(v)}
		}
		return []string{"vertex"}, rows
	case exec.ResultEdges:
		rows := make([][]value.Value, len(res.Edges))
		for i, e := range res.Edges {
			rows[i] = []value.Value{exec.EdgeValue(e)}
		}
		return []string{"edge"}, rows
	case exec.ResultPaths:
		rows := make([][]value.Value, len(res.Paths))
		for i, p := range res.Paths {
			rows[i] = []value.Value{pathValue(p)}
		}
		return []string{"path"}, rows
	case exec.ResultCount:
		return []string{"count"}, [][]value.Value{{value.Int(int64(res.Count))}}
	default:
		return nil, nil
	}
}

// pathValue wraps a materialized Path as an opaque value for now —
// callers that need per-step access walk res.Paths directly from the
// un-flattened ExecutionResult; the Value form exists so paths can
// still travel through row-shaped QueryResult.Rows.
func pathValue(p model.Path) value.Value {
	return value.Graph(value.KindPath, p)
}

// collectStats walks an operator tree depth-first via its Children
// hook, snapshotting each Stats() into an OperatorStat.
func collectStats(root exec.Operator) ExecutorStats {
	var out []OperatorStat
	var walk func(op exec.Operator)
	walk = func(op exec.Operator) {
		if op == nil {
			return
		}
		rows, execTime, totalTime, custom := op.Stats().Snapshot()
		out = append(out, OperatorStat{Name: op.Name(), Rows: rows, ExecTime: execTime, TotalTime: totalTime, Custom: custom})
		if cp, ok := op.(childProvider); ok {
			for _, c := range cp.Children() {
				walk(c)
			}
		}
	}
	walk(root)
	return ExecutorStats{Operators: out}
}

// childProvider is implemented by operators built in this package
// that expose their children for stats collection, since exec.Operator
// itself has no generic Children() method.
type childProvider interface {
	Children() []exec.Operator
}
