package query

import (
	"context"
	"time"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/value"
)

// Engine is the top-level Query API (§6): execute(ctx, query_string,
// parameters) -> QueryResult. It owns everything on the in-scope side
// of the "query parsing is out of scope" boundary — binding
// parameters, compiling a plan into an operator tree, and running it
// to completion — and delegates parsing/planning to a PlanBuilder
// collaborator, mirroring how the teacher's StorageExecutor delegated
// to a separate parser/planner rather than interleaving grammar and
// execution in one type.
type Engine struct {
	Storage *storage.Engine
	Catalog *catalog.Catalog
	Builder PlanBuilder
}

// NewEngine wires a storage engine, catalog, and plan builder into a
// runnable query engine.
func NewEngine(storageEngine *storage.Engine, cat *catalog.Catalog, builder PlanBuilder) *Engine {
	return &Engine{Storage: storageEngine, Catalog: cat, Builder: builder}
}

// Execute runs one query string end to end: validates that every
// bound parameter the query references is present, asks the
// PlanBuilder for an optimized logical plan, compiles that plan into
// an operator tree, pulls it to completion inside its own
// transaction, and shapes the result (§6/§7).
func (e *Engine) Execute(ctx context.Context, space, queryString string, params map[string]value.Value) (*QueryResult, error) {
	start := time.Now()

	if err := BindParameters(queryString, params); err != nil {
		return errorResult(err), nil
	}

	octx, err := e.Builder.Build(ctx, space, queryString, params)
	if err != nil {
		return errorResult(err), nil
	}

	tx := e.Storage.Begin(storage.Snapshot)
	deps := CompileDeps{Engine: e.Storage, Tx: tx, Catalog: e.Catalog, Space: space, Params: params}

	op, err := Compile(ctx, octx, deps)
	if err != nil {
		_ = tx.Rollback()
		return errorResult(err), nil
	}

	if err := op.Open(ctx); err != nil {
		_ = tx.Rollback()
		return errorResult(err), nil
	}
	res, err := op.Execute(ctx)
	closeErr := op.Close()
	if err != nil {
		_ = tx.Rollback()
		return errorResult(err), nil
	}
	if closeErr != nil {
		_ = tx.Rollback()
		return errorResult(closeErr), nil
	}

	if err := tx.Commit(); err != nil {
		return errorResult(err), nil
	}

	cols, rows := fromExecutionResult(res)
	return &QueryResult{
		Columns:         cols,
		Rows:            rows,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Stats:           collectStats(op),
	}, nil
}

// errorResult packages a failure as a QueryResult's Error field (§7)
// rather than a returned error, so callers get consistent {code, kind,
// message} shape whether the failure happened during binding,
// planning, compilation or execution.
func errorResult(err error) *QueryResult {
	info, ok := err.(*errs.Info)
	if !ok {
		info = errs.Execution("unknown_error", err.Error(), err)
	}
	return &QueryResult{Error: info}
}
