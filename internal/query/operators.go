package query

import (
	"context"

	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/traversal"
	"github.com/orneryd/nordgraph/internal/value"
)

// TraverseOp and ShortestPathOp live in this package rather than
// internal/exec because internal/traversal already imports
// internal/exec (its MultiShortestPath uses exec.ParallelMap for
// meet-point joining) — an exec.Operator wrapping traversal would
// close that into an import cycle. Both satisfy exec.Operator and
// compose into the same operator tree as any other node; they simply
// pull their seed vertices from a Child rather than from storage
// directly.
type childHolder struct {
	child exec.Operator
}

func (c childHolder) Children() []exec.Operator { return []exec.Operator{c.child} }

// seedVIDs extracts every distinct vertex id a child's result carries:
// a terminal ResultVertices set, a row table with an "id" column
// (IndexScan/Project), or a row table with a bound "__entity" column
// (a Scan not yet narrowed to an id projection).
func seedVIDs(res exec.ExecutionResult) []model.VID {
	switch res.Kind {
	case exec.ResultVertices:
		out := make([]model.VID, len(res.Vertices))
		for i, v := range res.Vertices {
			out[i] = v.VID
		}
		return out
	case exec.ResultValues:
		idCol, entityCol := -1, -1
		for i, c := range res.Columns {
			switch c {
			case "id":
				idCol = i
			case "__entity":
				entityCol = i
			}
		}
		out := make([]model.VID, 0, len(res.Rows))
		for _, row := range res.Rows {
			switch {
			case idCol >= 0:
				out = append(out, model.StringVID(row[idCol].String()))
			case entityCol >= 0:
				if vx, ok := row[entityCol].Graph().(model.Vertex); ok {
					out = append(out, vx.VID)
				}
			}
		}
		return out
	default:
		return nil
	}
}

// TraverseOp implements an Expand/ExpandAll step (§4.D) seeded by its
// Child's output, bridging planner.TraversePayload into a runnable
// operator.
type TraverseOp struct {
	exec.Base
	childHolder
	Engine    *storage.Engine
	Tx        *storage.Tx
	Space     string
	Direction model.Direction
	EdgeTypes []string
	MaxDepth  int
	AllPaths  bool
	done      bool
}

func NewTraverseOp(e *storage.Engine, tx *storage.Tx, space string, child exec.Operator, direction model.Direction, edgeTypes []string, maxDepth int, allPaths bool) *TraverseOp {
	return &TraverseOp{
		Base:        exec.NewBase("Traverse", "Expand/ExpandAll seeded by its child's rows"),
		childHolder: childHolder{child: child},
		Engine:      e,
		Tx:          tx,
		Space:       space,
		Direction:   direction,
		EdgeTypes:   edgeTypes,
		MaxDepth:    maxDepth,
		AllPaths:    allPaths,
	}
}

func (t *TraverseOp) Open(ctx context.Context) error { t.MarkOpen(); return t.child.Open(ctx) }
func (t *TraverseOp) Close() error                    { t.MarkClosed(); return t.child.Close() }

func (t *TraverseOp) Execute(ctx context.Context) (exec.ExecutionResult, error) {
	if t.done {
		return exec.Empty(), nil
	}
	t.done = true
	childRes, err := t.child.Execute(ctx)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	seeds := seedVIDs(childRes)
	filter := traversal.NewEdgeFilter(t.EdgeTypes...)

	if t.AllPaths {
		res, err := traversal.ExpandAll(ctx, t.Engine, t.Tx, traversal.ExpandAllOptions{
			Space: t.Space, Seeds: seeds, Direction: t.Direction, Filter: filter, MaxDepth: t.MaxDepth,
		})
		if err != nil {
			return exec.ExecutionResult{}, err
		}
		t.Stats().AddRow(int64(len(res.Paths)))
		return exec.PathsResult(res.Paths), nil
	}

	res, err := traversal.Expand(ctx, t.Engine, t.Tx, traversal.ExpandOptions{
		Space: t.Space, Seeds: seeds, Direction: t.Direction, Filter: filter, MaxDepth: t.MaxDepth,
	})
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	t.Stats().AddRow(int64(len(res.Vertices)))
	return exec.VerticesResult(res.Vertices), nil
}

// ShortestPathOp implements BidirectionalBFS/Dijkstra/AStar/
// MultiShortestPath (§4.D), bridging planner.ShortestPathPayload. Its
// Child supplies the source seeds; Targets is evaluated separately
// since a shortest-path query names its target set independently of
// the row stream that produced the sources (matching §4.D's
// [sources] x [targets] framing rather than forcing target discovery
// through the same operator chain as the source scan).
type ShortestPathOp struct {
	exec.Base
	childHolder
	Engine         *storage.Engine
	Tx             *storage.Tx
	Space          string
	Targets        []model.VID
	Algorithm      string // "bfs" | "dijkstra" | "astar"
	Direction      model.Direction
	EdgeTypes      []string
	WeightProperty string
	SingleShortest bool
	Limit          int
	done           bool
}

func NewShortestPathOp(e *storage.Engine, tx *storage.Tx, space string, child exec.Operator, targets []model.VID, algorithm string, direction model.Direction, edgeTypes []string, weightProperty string, singleShortest bool, limit int) *ShortestPathOp {
	return &ShortestPathOp{
		Base:           exec.NewBase("ShortestPath", "BFS/Dijkstra/A*/multi shortest path seeded by its child's rows"),
		childHolder:    childHolder{child: child},
		Engine:         e,
		Tx:             tx,
		Space:          space,
		Targets:        targets,
		Algorithm:      algorithm,
		Direction:      direction,
		EdgeTypes:      edgeTypes,
		WeightProperty: weightProperty,
		SingleShortest: singleShortest,
		Limit:          limit,
	}
}

func (s *ShortestPathOp) Open(ctx context.Context) error { s.MarkOpen(); return s.child.Open(ctx) }
func (s *ShortestPathOp) Close() error                     { s.MarkClosed(); return s.child.Close() }

func (s *ShortestPathOp) Execute(ctx context.Context) (exec.ExecutionResult, error) {
	if s.done {
		return exec.Empty(), nil
	}
	s.done = true
	childRes, err := s.child.Execute(ctx)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	sources := seedVIDs(childRes)
	base := traversal.ShortestPathOptions{
		Space:          s.Space,
		Sources:        sources,
		Targets:        s.Targets,
		Direction:      s.Direction,
		Filter:         traversal.NewEdgeFilter(s.EdgeTypes...),
		SingleShortest: s.SingleShortest,
		Limit:          s.Limit,
	}

	var res *traversal.ShortestPathResult
	switch s.Algorithm {
	case "dijkstra":
		res, err = traversal.Dijkstra(ctx, s.Engine, s.Tx, traversal.DijkstraOptions{ShortestPathOptions: base, WeightProperty: s.WeightProperty})
	case "astar":
		res, err = traversal.AStar(ctx, s.Engine, s.Tx, traversal.AStarOptions{DijkstraOptions: traversal.DijkstraOptions{ShortestPathOptions: base, WeightProperty: s.WeightProperty}})
	case "multi":
		res, err = traversal.MultiShortestPath(ctx, s.Engine, s.Tx, traversal.MultiShortestPathOptions{ShortestPathOptions: base})
	default:
		res, err = traversal.BidirectionalBFS(ctx, s.Engine, s.Tx, base)
	}
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	s.Stats().AddRow(int64(len(res.Paths)))
	return exec.PathsResult(res.Paths), nil
}

// rowEnv adapts one ValuesResult row to expr.Env, mirroring
// internal/exec's unexported type of the same name (duplicated here
// rather than exported from exec, since exec deliberately keeps no
// dependency on expr's Env consumers beyond its own operators).
type rowEnv struct {
	cols   []string
	row    []value.Value
	params map[string]value.Value
}

func (e *rowEnv) Variable(name string) (value.Value, bool) {
	for i, c := range e.cols {
		if c == name {
			return e.row[i], true
		}
	}
	return value.Value{}, false
}

func (e *rowEnv) Parameter(name string) (value.Value, bool) {
	v, ok := e.params[name]
	return v, ok
}

func (e *rowEnv) Property(entity value.Value, prop string) (value.Value, bool) {
	switch entity.Kind {
	case value.KindVertex:
		vx, ok := entity.Graph().(model.Vertex)
		if !ok {
			return value.Value{}, false
		}
		if v, ok := vx.Properties[prop]; ok {
			return v, true
		}
		for _, t := range vx.Tags {
			if v, ok := t.Properties[prop]; ok {
				return v, true
			}
		}
		return value.Value{}, false
	case value.KindEdge:
		ed, ok := entity.Graph().(model.Edge)
		if !ok {
			return value.Value{}, false
		}
		v, ok := ed.Properties[prop]
		return v, ok
	case value.KindMap:
		v, ok := entity.Map()[prop]
		return v, ok
	}
	return value.Value{}, false
}

// evalAppend evaluates Exprs against each of Child's rows and appends
// the results as trailing columns under AppendNames, letting
// Aggregate/Sort (whose AggSpec/OrderKey address columns by index, not
// by expression) operate over materialized expr results the same way
// they operate over a Scan/Project's native columns. compile.go
// builds the outer Aggregate/Sort operator against the appended
// column indices and, for Sort, trims the synthetic columns back out
// after ordering so they never reach the caller's QueryResult.
type evalAppend struct {
	exec.Base
	childHolder
	Exprs       []expr.Expr
	AppendNames []string
	Params      map[string]value.Value
}

func newEvalAppend(child exec.Operator, exprs []expr.Expr, appendNames []string, params map[string]value.Value) *evalAppend {
	return &evalAppend{
		Base:        exec.NewBase("EvalAppend", "materializes expressions as trailing columns"),
		childHolder: childHolder{child: child},
		Exprs:       exprs,
		AppendNames: appendNames,
		Params:      params,
	}
}

func (e *evalAppend) Open(ctx context.Context) error { e.MarkOpen(); return e.child.Open(ctx) }
func (e *evalAppend) Close() error                    { e.MarkClosed(); return e.child.Close() }

func (e *evalAppend) Execute(ctx context.Context) (exec.ExecutionResult, error) {
	res, err := e.child.Execute(ctx)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	if res.Kind != exec.ResultValues {
		return res, nil
	}
	cols := append(append([]string{}, res.Columns...), e.AppendNames...)
	out := make([][]value.Value, len(res.Rows))
	for i, row := range res.Rows {
		env := &rowEnv{cols: res.Columns, row: row, params: e.Params}
		newRow := append([]value.Value{}, row...)
		for _, ex := range e.Exprs {
			v, err := ex.Eval(env)
			if err != nil {
				return exec.ExecutionResult{}, err
			}
			newRow = append(newRow, v)
		}
		out[i] = newRow
	}
	e.Stats().AddRow(int64(len(out)))
	return exec.ValuesResult(cols, out), nil
}

// dropColumns projects away the trailing synthetic columns evalAppend
// added, restoring the column set Sort's caller expects.
type dropColumns struct {
	exec.Base
	childHolder
	Keep int // number of leading columns to retain
}

func newDropColumns(child exec.Operator, keep int) *dropColumns {
	return &dropColumns{Base: exec.NewBase("DropColumns", "trims synthetic trailing columns"), childHolder: childHolder{child: child}, Keep: keep}
}

func (d *dropColumns) Open(ctx context.Context) error { d.MarkOpen(); return d.child.Open(ctx) }
func (d *dropColumns) Close() error                    { d.MarkClosed(); return d.child.Close() }

func (d *dropColumns) Execute(ctx context.Context) (exec.ExecutionResult, error) {
	res, err := d.child.Execute(ctx)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	if res.Kind != exec.ResultValues || d.Keep >= len(res.Columns) {
		return res, nil
	}
	cols := res.Columns[:d.Keep]
	out := make([][]value.Value, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = row[:d.Keep]
	}
	d.Stats().AddRow(int64(len(out)))
	return exec.ValuesResult(cols, out), nil
}
