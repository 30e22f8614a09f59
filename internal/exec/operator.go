// Package exec implements the pull-based operator tree of §4.C,
// generalized from the teacher's pkg/cypher.StorageExecutor — a flat
// Execute() pipeline that parsed and evaluated a query in one pass —
// into a composable tree of operators, each satisfying an
// open/execute/close lifecycle so operators can be planned, reused
// across multiple execute() calls, and cancelled cooperatively.
package exec

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/value"
)

// ResultKind discriminates an ExecutionResult's payload.
type ResultKind uint8

const (
	ResultVertices ResultKind = iota
	ResultEdges
	ResultPaths
	ResultValues
	ResultCount
	ResultEmpty
)

// ExecutionResult is the tagged union an operator's execute() call
// returns (§4.C).
type ExecutionResult struct {
	Kind     ResultKind
	Vertices []model.Vertex
	Edges    []model.Edge
	Paths    []model.Path
	// Values holds a flattened row-major table: Columns names each
	// field, Rows holds len(Columns) values per entry.
	Columns []string
	Rows    [][]value.Value
	Count   uint64
}

func Empty() ExecutionResult { return ExecutionResult{Kind: ResultEmpty} }

func CountResult(n uint64) ExecutionResult { return ExecutionResult{Kind: ResultCount, Count: n} }

func ValuesResult(columns []string, rows [][]value.Value) ExecutionResult {
	return ExecutionResult{Kind: ResultValues, Columns: columns, Rows: rows}
}

func VerticesResult(vs []model.Vertex) ExecutionResult {
	return ExecutionResult{Kind: ResultVertices, Vertices: vs}
}

func EdgesResult(es []model.Edge) ExecutionResult {
	return ExecutionResult{Kind: ResultEdges, Edges: es}
}

func PathsResult(ps []model.Path) ExecutionResult {
	return ExecutionResult{Kind: ResultPaths, Paths: ps}
}

// Len reports how many logical rows a result carries, regardless of
// its concrete payload kind; used by BatchedOperator's row bookkeeping.
func (r ExecutionResult) Len() int {
	switch r.Kind {
	case ResultVertices:
		return len(r.Vertices)
	case ResultEdges:
		return len(r.Edges)
	case ResultPaths:
		return len(r.Paths)
	case ResultValues:
		return len(r.Rows)
	case ResultCount:
		return 1
	default:
		return 0
	}
}

// Stats accumulates the per-operator counters named in §4.C:
// add_row(n), add_exec_time(d), add_total_time(d), add_stat(k,v).
// Safe for concurrent use since a parallelized operator's workers
// report into the same Stats instance.
type Stats struct {
	mu        sync.Mutex
	operator  string
	rows      int64
	execTime  time.Duration
	totalTime time.Duration
	custom    map[string]string
}

func NewStats() *Stats { return &Stats{custom: make(map[string]string)} }

// newStatsFor is like NewStats but labels the Prometheus series this
// Stats instance reports into with the owning operator's name.
func newStatsFor(operator string) *Stats {
	return &Stats{operator: operator, custom: make(map[string]string)}
}

func (s *Stats) AddRow(n int64) {
	atomic.AddInt64(&s.rows, n)
	if s.operator != "" {
		observeRows(s.operator, n)
	}
}
func (s *Stats) AddExecTime(d time.Duration) {
	s.mu.Lock()
	s.execTime += d
	s.mu.Unlock()
	if s.operator != "" {
		observeExecTime(s.operator, d)
	}
}
func (s *Stats) AddTotalTime(d time.Duration) { s.mu.Lock(); s.totalTime += d; s.mu.Unlock() }
func (s *Stats) AddStat(k, v string)          { s.mu.Lock(); s.custom[k] = v; s.mu.Unlock() }

func (s *Stats) Snapshot() (rows int64, execTime, totalTime time.Duration, custom map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.custom))
	for k, v := range s.custom {
		out[k] = v
	}
	return atomic.LoadInt64(&s.rows), s.execTime, s.totalTime, out
}

// Operator is the contract every execution-tree node implements
// (§4.C). Implementations embed Base for the id/name/stats/is_open
// bookkeeping common to all of them.
type Operator interface {
	Open(ctx context.Context) error
	Execute(ctx context.Context) (ExecutionResult, error)
	Close() error
	IsOpen() bool
	ID() int64
	Name() string
	Description() string
	Stats() *Stats
}

// Base implements the bookkeeping shared by every concrete operator:
// id assignment, name/description, open/closed state, and stats.
// Concrete operators embed Base and implement only Open/Execute/Close.
type Base struct {
	id          int64
	name        string
	description string
	stats       *Stats
	open        bool
}

var nextOperatorID int64

func newOperatorID() int64 { return atomic.AddInt64(&nextOperatorID, 1) }

// NewBase constructs a Base with a freshly minted id.
func NewBase(name, description string) Base {
	return Base{id: newOperatorID(), name: name, description: description, stats: newStatsFor(name)}
}

func (b *Base) ID() int64            { return b.id }
func (b *Base) Name() string         { return b.name }
func (b *Base) Description() string  { return b.description }
func (b *Base) Stats() *Stats        { return b.stats }
func (b *Base) IsOpen() bool         { return b.open }
func (b *Base) markOpen()            { b.open = true }
func (b *Base) markClosed()          { b.open = false }

// MarkOpen/MarkClosed let an operator built outside this package (an
// internal/query bridging type that cannot embed an exec-internal
// dependency, e.g. because it wraps internal/traversal and
// internal/traversal already imports this package) still participate
// in Base's open/closed bookkeeping.
func (b *Base) MarkOpen()   { b.open = true }
func (b *Base) MarkClosed() { b.open = false }

// CancelToken is the shared cancellation flag operators check between
// batches (§4.C: "Cancellation is cooperative"). It wraps a
// context.Context's Done channel so both ctx-based and explicit
// cancellation (e.g. an administrative KILL QUERY) compose.
type CancelToken struct {
	ctx context.Context
}

func NewCancelToken(ctx context.Context) CancelToken { return CancelToken{ctx: ctx} }

func (c CancelToken) Cancelled() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

func (c CancelToken) Err() error { return c.ctx.Err() }
