// Package planner implements §4.E: a logical plan DAG of PlanNode
// variants, an OptRule engine that rewrites the DAG addressed by
// group_node_id, predicate splitting, expression analysis, and type
// deduction. The teacher has no optimizer of its own — pkg/cypher's
// StorageExecutor walks a parsed AST directly and issues storage calls
// inline — so this package is grounded primarily on
// original_source/src/query/optimizer and src/query/planner, expressed
// in the small-struct, interface-dispatch idiom the teacher uses for
// its own AST (pkg/cypher/ast.go) and executor operators
// (internal/exec).
package planner

import "github.com/orneryd/nordgraph/internal/expr"

// NodeID addresses one PlanNode within an OptContext (the "group_node_id"
// of §4.E).
type NodeID int

// Kind enumerates the PlanNode variants named in §4.E.
type Kind string

const (
	KindScan         Kind = "Scan"
	KindFilter       Kind = "Filter"
	KindProject      Kind = "Project"
	KindJoin         Kind = "Join"
	KindAggregate    Kind = "Aggregate"
	KindSort         Kind = "Sort"
	KindLimit        Kind = "Limit"
	KindInsert       Kind = "Insert"
	KindUpdate       Kind = "Update"
	KindDelete       Kind = "Delete"
	KindIndexScan    Kind = "IndexScan"
	KindUnionAll     Kind = "UnionAll"
	KindTraverse     Kind = "Traverse"
	KindShortestPath Kind = "ShortestPath"
)

// PlanNode is one node of the logical plan DAG: a Kind, its input
// dependencies by id, and a kind-specific payload. Unlike internal/exec's
// Operator tree (which is a runnable pull-based pipeline), PlanNode is
// purely descriptive — the planner rewrites it; a later build step
// (not part of this package) lowers the optimized DAG into exec
// operators.
type PlanNode struct {
	ID      NodeID
	Kind    Kind
	Inputs  []NodeID
	EstCost float64
	EstRows int64

	Scan         *ScanPayload
	Filter       *FilterPayload
	Project      *ProjectPayload
	Join         *JoinPayload
	Aggregate    *AggregatePayload
	Sort         *SortPayload
	Limit        *LimitPayload
	Mutate       *MutatePayload
	IndexScan    *IndexScanPayload
	UnionAll     *UnionAllPayload
	Traverse     *TraversePayload
	ShortestPath *ShortestPathPayload
}

// ScanPayload is a full scan of a space's vertices or edges.
type ScanPayload struct {
	Space  string
	Target string // tag or edge-type name, "" for every entity
	IsEdge bool
}

// ColumnLimit bounds one indexed column per §4.E: "equality -> [v,v],
// > or >= -> [v, inf), etc." — a composite index carries one
// ColumnLimit per column with a pushable conjunct, matching the
// literal scan_limits shape of §8 Scenario 4
// (`[{column: age, begin: "18", end: None}, {column: name, begin:
// "John", end: "John"}]`).
type ColumnLimit struct {
	Column string
	Begin  interface{}
	End    interface{}
}

// IndexScanPayload is an index lookup, optionally carrying a residual
// filter that PushFilterIntoIndexScan could not fully absorb into Limits.
type IndexScanPayload struct {
	IndexName    string
	Target       string
	TargetIsEdge bool
	ScanType     string // "unique" | "prefix" | "range", matches exec.ScanType
	Limits       []ColumnLimit
	Residual     expr.Expr // nil once the filter is fully pushed down
}

// UnionAllPayload merges the rows of its Inputs.
type UnionAllPayload struct{}

// FilterPayload keeps a residual predicate above a scan or join.
type FilterPayload struct {
	Predicate expr.Expr
}

// ProjectPayload names the output columns and their defining
// expressions.
type ProjectPayload struct {
	Exprs   []expr.Expr
	Aliases []string
}

// JoinPayload is an equi-join on column index pairs, per internal/exec.Join.
type JoinPayload struct {
	Kind               string // "inner" | "left" | "outer" | "cartesian"
	LeftKeys, RightKeys []int
	// BuildLeft is the side JoinReorder chose as the (smaller) hash-build
	// side; it starts false (build-right, the executor's default) until
	// a cost-based rewrite sets it.
	BuildLeft bool
}

// AggregatePayload groups by GroupKeyCols and computes Specs, matching
// internal/exec.AggSpec's shape so it lowers without translation.
type AggregatePayload struct {
	GroupKeyCols []int
	FuncNames    []string
	ArgExprs     []expr.Expr
	OutputCols   []string
}

// SortPayload orders by Keys; Limit > 0 makes it a top-k sort lowering
// to exec.TopN instead of exec.Sort.
type SortPayload struct {
	Keys  []SortKey
	Limit int
}

// SortKey is one ORDER BY column/expression plus direction.
type SortKey struct {
	Expr       expr.Expr
	Descending bool
}

// LimitPayload is a row-count cap (with an optional preceding skip,
// folded into the same node since both are pure row-counters).
type LimitPayload struct {
	Skip  int
	Count int
}

// MutatePayload covers Insert/Update/Delete; the specific DML kind is
// carried on the owning PlanNode.Kind.
type MutatePayload struct {
	Space  string
	Target string
	IsEdge bool
}

// TraversePayload names an Expand/ExpandAll step (§4.D), addressed by
// the vertex variable its Inputs row carries as the seed.
type TraversePayload struct {
	Direction   string
	EdgeTypes   []string
	MaxDepth    int
	AllPaths    bool // ExpandAll vs. single-step Expand
}

// ShortestPathPayload names a BidirectionalBFS/Dijkstra/AStar/
// MultiShortestPath step.
type ShortestPathPayload struct {
	Algorithm      string // "bfs" | "dijkstra" | "astar"
	Direction      string
	WeightProperty string
	SingleShortest bool
}

// Clone returns a shallow copy of n with its own Inputs slice, so rules
// can rewrite a node without aliasing the original DAG's slice backing
// array.
func (n *PlanNode) Clone() *PlanNode {
	cp := *n
	cp.Inputs = append([]NodeID(nil), n.Inputs...)
	return &cp
}
