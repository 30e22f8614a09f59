package query

import (
	"context"
	"strconv"
	"strings"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/planner"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/value"
)

// PlanBuilder is the external collaborator this package delegates to
// for everything the spec marks out of scope: parsing a raw query
// string into an AST and lowering it into a logical
// planner.OptContext. The engine built here only ever receives the
// result of Build — it never inspects the query string's grammar
// itself, matching §1's "the planner receives an AST" boundary.
type PlanBuilder interface {
	Build(ctx context.Context, space, queryString string, params map[string]value.Value) (*planner.OptContext, error)
}

// CompileDeps supplies the storage handles a compiled operator tree
// needs to actually run: the engine, an open transaction, the catalog
// (for index/tag lookups during compilation), the space name, and the
// bound query parameters.
type CompileDeps struct {
	Engine  *storage.Engine
	Tx      *storage.Tx
	Catalog *catalog.Catalog
	Space   string
	Params  map[string]value.Value
}

// Compile lowers an optimized planner.OptContext into a runnable
// exec.Operator tree (§2's "Physical plan (operator tree)" step),
// walking the DAG from its root and recursively compiling each
// node's Inputs first.
func Compile(ctx context.Context, octx *planner.OptContext, deps CompileDeps) (exec.Operator, error) {
	return compileNode(ctx, octx, octx.Root(), deps)
}

func compileNode(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	if n == nil {
		return exec.NewStart(), nil
	}
	switch n.Kind {
	case planner.KindScan:
		return compileScan(n, deps)
	case planner.KindIndexScan:
		return compileIndexScan(ctx, octx, n, deps)
	case planner.KindFilter:
		return compileFilter(ctx, octx, n, deps)
	case planner.KindProject:
		return compileProject(ctx, octx, n, deps)
	case planner.KindLimit:
		return compileLimit(ctx, octx, n, deps)
	case planner.KindJoin:
		return compileJoin(ctx, octx, n, deps)
	case planner.KindUnionAll:
		return compileUnionAll(ctx, octx, n, deps)
	case planner.KindAggregate:
		return compileAggregate(ctx, octx, n, deps)
	case planner.KindSort:
		return compileSort(ctx, octx, n, deps)
	case planner.KindInsert, planner.KindUpdate, planner.KindDelete:
		return compileMutate(ctx, octx, n, deps)
	case planner.KindTraverse:
		return compileTraverse(ctx, octx, n, deps)
	case planner.KindShortestPath:
		return compileShortestPath(ctx, octx, n, deps)
	default:
		return nil, errs.Execution("unknown_plan_kind", "no compiler for plan node kind "+string(n.Kind), nil)
	}
}

func compileChild(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, i int, deps CompileDeps) (exec.Operator, error) {
	child := octx.Input(n, i)
	if child == nil {
		return exec.NewStart(), nil
	}
	return compileNode(ctx, octx, child, deps)
}

func compileScan(n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	p := n.Scan
	return exec.NewScan(deps.Engine, deps.Tx, deps.Space, p.Target, p.IsEdge), nil
}

func compileFilter(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	child, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	return exec.NewFilter(child, n.Filter.Predicate, deps.Params), nil
}

func compileProject(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	child, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	return exec.NewProject(child, n.Project.Exprs, n.Project.Aliases, deps.Params), nil
}

func compileLimit(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	child, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	op := child
	if n.Limit.Skip > 0 {
		op = exec.NewSkip(op, n.Limit.Skip)
	}
	if n.Limit.Count > 0 {
		op = exec.NewLimit(op, n.Limit.Count)
	}
	return op, nil
}

func compileJoin(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	left, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	right, err := compileChild(ctx, octx, n, 1, deps)
	if err != nil {
		return nil, err
	}
	p := n.Join
	return exec.NewJoin(left, right, p.LeftKeys, p.RightKeys, exec.JoinKind(p.Kind), p.BuildLeft), nil
}

// unionAll concatenates its children's row sets; UnionAllPayload
// carries no fields of its own, so compilation is just the n-ary
// concatenation internal/exec doesn't otherwise need an operator for.
type unionAll struct {
	exec.Base
	children []exec.Operator
}

func newUnionAll(children []exec.Operator) *unionAll {
	return &unionAll{Base: exec.NewBase("UnionAll", "concatenated rows of every input"), children: children}
}

func (u *unionAll) Children() []exec.Operator { return u.children }

func (u *unionAll) Open(ctx context.Context) error {
	u.MarkOpen()
	for _, c := range u.children {
		if err := c.Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (u *unionAll) Close() error {
	u.MarkClosed()
	for _, c := range u.children {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (u *unionAll) Execute(ctx context.Context) (exec.ExecutionResult, error) {
	var cols []string
	var rows [][]value.Value
	for _, c := range u.children {
		res, err := c.Execute(ctx)
		if err != nil {
			return exec.ExecutionResult{}, err
		}
		if res.Kind != exec.ResultValues {
			continue
		}
		if cols == nil {
			cols = res.Columns
		}
		rows = append(rows, res.Rows...)
	}
	u.Stats().AddRow(int64(len(rows)))
	return exec.ValuesResult(cols, rows), nil
}

func compileUnionAll(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	children := make([]exec.Operator, len(n.Inputs))
	for i := range n.Inputs {
		child, err := compileChild(ctx, octx, n, i, deps)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return newUnionAll(children), nil
}

// compileIndexScan collapses an IndexScanPayload's per-column Limits
// into the single composite ScanLimits triple internal/exec.IndexScan
// expects, keying the composite string the same way storage.Engine's
// IndexPut/LookupIndex do: value.HashKey per column, joined in the
// index's declared Properties order.
func compileIndexScan(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	p := n.IndexScan
	idx, ok := deps.Catalog.GetIndex(deps.Space, p.IndexName)
	if !ok {
		return nil, errs.Semantic("unknown_index", "no such index: "+p.IndexName)
	}
	scanType, limits := collapseIndexLimits(idx, p.Limits)
	scan := exec.NewIndexScan(deps.Engine, deps.Tx, deps.Space, p.IndexName, p.Target, p.TargetIsEdge, scanType, limits)
	if p.Residual == nil {
		return scan, nil
	}
	scan.Filter = func(row *exec.Row) (bool, error) {
		v, err := p.Residual.Eval(&rowVarEnv{row: row, params: deps.Params})
		if err != nil {
			return false, err
		}
		return v.IsTrue(), nil
	}
	return scan, nil
}

// rowVarEnv adapts an exec.Row (rather than a flattened ValuesResult
// row) to expr.Env, used only for IndexScan's residual filter, which
// runs before columns have been projected out of the row's bound
// "__entity" variable.
type rowVarEnv struct {
	row    *exec.Row
	params map[string]value.Value
}

func (e *rowVarEnv) Variable(name string) (value.Value, bool) { return e.row.Variable(name) }
func (e *rowVarEnv) Parameter(name string) (value.Value, bool) {
	v, ok := e.params[name]
	return v, ok
}
func (e *rowVarEnv) Property(entity value.Value, prop string) (value.Value, bool) {
	return e.row.Property(entity, prop)
}

func collapseIndexLimits(idx *catalog.Index, limits []planner.ColumnLimit) (exec.ScanType, exec.ScanLimits) {
	byCol := make(map[string]planner.ColumnLimit, len(limits))
	for _, l := range limits {
		byCol[l.Column] = l
	}

	var beginParts, endParts []string
	unique := len(limits) > 0
	for _, col := range idx.Properties {
		l, ok := byCol[col]
		if !ok {
			break
		}
		bv, bok := l.Begin.(value.Value)
		ev, eok := l.End.(value.Value)
		if bok {
			beginParts = append(beginParts, value.HashKey(bv))
		}
		if eok {
			endParts = append(endParts, value.HashKey(ev))
		}
		if !bok || !eok || !value.Equal(bv, ev).IsTrue() {
			unique = false
		}
	}

	begin := strings.Join(beginParts, "\x00")
	if unique {
		return exec.ScanUnique, exec.ScanLimits{Exact: value.String(begin)}
	}
	end := strings.Join(endParts, "\x00")
	return exec.ScanRange, exec.ScanLimits{Begin: value.String(begin), End: value.String(end)}
}

// compileAggregate materializes AggregatePayload's ArgExprs as
// trailing columns (evalAppend) so exec.Aggregate's column-index-based
// AggSpec can address them, then appends the group-key columns'
// positions unchanged (they're already plain column references
// resolved by the planner's group-by analysis into GroupKeyCols).
func compileAggregate(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	child, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	p := n.Aggregate
	baseWidth := baseColumnWidth(octx, n, 0)
	appended := newEvalAppend(child, p.ArgExprs, syntheticNames(len(p.ArgExprs)), deps.Params)

	specs := make([]exec.AggSpec, len(p.FuncNames))
	for i, fn := range p.FuncNames {
		specs[i] = exec.AggSpec{Func: exec.AggFunc(fn), Column: baseWidth + i}
	}
	return exec.NewAggregate(appended, p.GroupKeyCols, specs, p.OutputCols), nil
}

// compileSort materializes SortPayload's SortKey expressions as
// trailing columns the same way compileAggregate does, sorts (or
// top-k sorts, when Limit > 0) by those synthetic columns, then trims
// them back off so the synthetic columns never reach the caller.
func compileSort(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	child, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	p := n.Sort
	baseWidth := baseColumnWidth(octx, n, 0)

	exprs := make([]expr.Expr, len(p.Keys))
	keys := make([]exec.OrderKey, len(p.Keys))
	for i, k := range p.Keys {
		exprs[i] = k.Expr
		keys[i] = exec.OrderKey{Column: baseWidth + i, Descending: k.Descending}
	}
	appended := newEvalAppend(child, exprs, syntheticNames(len(exprs)), deps.Params)

	var sorted exec.Operator
	if p.Limit > 0 {
		sorted = exec.NewTopN(appended, keys, p.Limit)
	} else {
		sorted = exec.NewSort(appended, keys)
	}
	return newDropColumns(sorted, baseWidth), nil
}

func syntheticNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "__synthetic_" + strconv.Itoa(i)
	}
	return names
}

// baseColumnWidth estimates a node's output column count by consulting
// its Project/Aggregate payload when available, falling back to a
// conservative guess of 1 (the "id" column) so appending synthetic
// columns never collides with real ones even when a more precise
// count isn't readily derivable at compile time.
func baseColumnWidth(octx *planner.OptContext, n *planner.PlanNode, inputIdx int) int {
	child := octx.Input(n, inputIdx)
	if child == nil {
		return 0
	}
	switch child.Kind {
	case planner.KindProject:
		return len(child.Project.Aliases)
	case planner.KindAggregate:
		return len(child.Aggregate.OutputCols)
	default:
		return 1
	}
}

func compileMutate(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	child, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	kind := map[planner.Kind]string{planner.KindInsert: "insert", planner.KindUpdate: "update", planner.KindDelete: "delete"}[n.Kind]
	p := n.Mutate
	if p.IsEdge {
		return newMutateEdgesBridge(deps.Engine, deps.Tx, deps.Space, kind, child), nil
	}
	return newMutateVerticesBridge(deps.Engine, deps.Catalog, deps.Tx, deps.Space, p.Target, kind, child, deps.Params), nil
}

func compileTraverse(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	child, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	p := n.Traverse
	return NewTraverseOp(deps.Engine, deps.Tx, deps.Space, child, directionFromString(p.Direction), p.EdgeTypes, p.MaxDepth, p.AllPaths), nil
}

func compileShortestPath(ctx context.Context, octx *planner.OptContext, n *planner.PlanNode, deps CompileDeps) (exec.Operator, error) {
	child, err := compileChild(ctx, octx, n, 0, deps)
	if err != nil {
		return nil, err
	}
	p := n.ShortestPath
	var targets []model.VID
	if len(n.Inputs) > 1 {
		targetChild, err := compileChild(ctx, octx, n, 1, deps)
		if err != nil {
			return nil, err
		}
		if err := targetChild.Open(ctx); err != nil {
			return nil, err
		}
		res, err := targetChild.Execute(ctx)
		if err != nil {
			return nil, err
		}
		_ = targetChild.Close()
		targets = seedVIDs(res)
	}
	algo := p.Algorithm
	if !p.SingleShortest && algo == "bfs" {
		algo = "multi"
	}
	return NewShortestPathOp(deps.Engine, deps.Tx, deps.Space, child, targets, algo, directionFromString(p.Direction), nil, p.WeightProperty, p.SingleShortest, 0), nil
}

func directionFromString(d string) model.Direction {
	switch d {
	case "in":
		return model.DirIn
	case "both":
		return model.DirBoth
	default:
		return model.DirOut
	}
}
