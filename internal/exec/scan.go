// Scan operators: Start (the empty seed row) and the IndexScan /
// FulltextIndexScan family, wired against the storage.Engine built in
// internal/storage. Grounded on the teacher's StorageExecutor methods
// that walk storage directly (matchNodesByLabel-style helpers in
// pkg/cypher/executor.go), restructured into the pull operator
// contract instead of a monolithic Execute() switch.
package exec

import (
	"context"

	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/value"
)

// Start is the seed of a plan: a single empty row (§4.C).
type Start struct {
	Base
	done bool
}

func NewStart() *Start { return &Start{Base: NewBase("Start", "seed of a plan")} }

func (s *Start) Open(context.Context) error { s.markOpen(); s.done = false; return nil }
func (s *Start) Close() error               { s.markClosed(); return nil }

func (s *Start) Execute(ctx context.Context) (ExecutionResult, error) {
	if s.done {
		return Empty(), nil
	}
	s.done = true
	s.Stats().AddRow(1)
	return ValuesResult(nil, [][]value.Value{{}}), nil
}

// Scan is a full, unindexed walk of a space's vertices or edges —
// every tag/type when Target is "", one tag/type otherwise. It backs
// plan nodes an index couldn't be found or chosen for. Like IndexScan,
// it always emits a ValuesResult (a single "__entity" column holding
// each vertex/edge) rather than a ResultVertices/ResultEdges directly,
// since Filter/Project/Limit/Skip/Aggregate/Sort only operate over
// ValuesResult rows — a bare ResultVertices/ResultEdges is reserved
// for a query's final, already-shaped output.
type Scan struct {
	Base
	Engine *storage.Engine
	Tx     *storage.Tx
	Space  string
	Target string
	IsEdge bool
	done   bool
}

func NewScan(e *storage.Engine, tx *storage.Tx, space, target string, isEdge bool) *Scan {
	return &Scan{Base: NewBase("Scan", "full scan of a space's vertices or edges"), Engine: e, Tx: tx, Space: space, Target: target, IsEdge: isEdge}
}

func (s *Scan) Open(context.Context) error { s.markOpen(); s.done = false; return nil }
func (s *Scan) Close() error                { s.markClosed(); return nil }

func (s *Scan) Execute(ctx context.Context) (ExecutionResult, error) {
	if s.done {
		return Empty(), nil
	}
	s.done = true

	if s.IsEdge {
		edges := s.Engine.ScanEdgesByType(s.Tx, s.Space, s.Target)
		rows := make([][]value.Value, len(edges))
		for i, e := range edges {
			rows[i] = []value.Value{EdgeValue(*e)}
		}
		s.Stats().AddRow(int64(len(rows)))
		return ValuesResult([]string{"__entity"}, rows), nil
	}

	var vertices []*model.Vertex
	if s.Target == "" {
		vertices = s.Engine.ScanVertices(s.Tx, s.Space)
	} else {
		vertices = s.Engine.ScanVerticesByTag(s.Tx, s.Space, s.Target)
	}
	rows := make([][]value.Value, len(vertices))
	for i, v := range vertices {
		rows[i] = []value.Value{VertexValue(*v)}
	}
	s.Stats().AddRow(int64(len(rows)))
	return ValuesResult([]string{"__entity"}, rows), nil
}

// ScanType enumerates the three index access patterns of §4.C.
type ScanType string

const (
	ScanUnique ScanType = "unique"
	ScanPrefix ScanType = "prefix"
	ScanRange  ScanType = "range"
)

// ScanLimits bounds an IndexScan per §4.E's pushed-down predicates:
// Begin/End for range scans, Exact for unique/prefix lookups.
type ScanLimits struct {
	Exact value.Value
	Begin value.Value
	End   value.Value
}

// IndexScan looks up an index, fetches the owning entities, applies
// an optional residual filter, and projects return_columns — the
// four-step pipeline named in §4.C's operator table.
type IndexScan struct {
	Base
	Engine       *storage.Engine
	Tx           *storage.Tx
	Space        string
	IndexName    string
	Target       string // tag or edge-type name the index covers
	TargetIsEdge bool
	Kind         ScanType
	Limits       ScanLimits
	Filter       func(row *Row) (bool, error)
	ReturnCols   []string

	done bool
}

func NewIndexScan(e *storage.Engine, tx *storage.Tx, space, indexName, target string, edgeTarget bool, kind ScanType, limits ScanLimits) *IndexScan {
	return &IndexScan{
		Base:         NewBase("IndexScan", "index lookup -> fetch -> filter -> project"),
		Engine:       e,
		Tx:           tx,
		Space:        space,
		IndexName:    indexName,
		Target:       target,
		TargetIsEdge: edgeTarget,
		Kind:         kind,
		Limits:       limits,
	}
}

func (s *IndexScan) Open(context.Context) error { s.markOpen(); s.done = false; return nil }
func (s *IndexScan) Close() error                { s.markClosed(); return nil }

func (s *IndexScan) Execute(ctx context.Context) (ExecutionResult, error) {
	if s.done {
		return Empty(), nil
	}
	s.done = true

	var ownerIDs []string
	switch s.Kind {
	case ScanUnique, ScanPrefix:
		ownerIDs = s.Engine.LookupIndex(s.Tx, s.Space, s.IndexName, s.Limits.Exact.String())
	case ScanRange:
		ownerIDs = s.Engine.RangeLookupIndex(s.Tx, s.Space, s.IndexName, s.Limits.Begin, s.Limits.End)
	}

	var rows [][]value.Value
	cols := s.ReturnCols
	if len(cols) == 0 {
		cols = []string{"id"}
	}

	for _, id := range ownerIDs {
		row := NewRow(nil)
		var entityVal value.Value
		if s.TargetIsEdge {
			continue // edge-target index entries are not resolved here; only vertex-owned entries produce rows
		}
		vx, ok, err := s.Engine.GetVertex(s.Tx, s.Space, model.StringVID(id))
		if err != nil {
			return ExecutionResult{}, err
		}
		if !ok {
			continue
		}
		entityVal = VertexValue(*vx)
		row.Set("__entity", entityVal)

		if s.Filter != nil {
			keep, err := s.Filter(row)
			if err != nil {
				return ExecutionResult{}, err
			}
			if !keep {
				continue
			}
		}

		out := make([]value.Value, len(cols))
		for i, c := range cols {
			if c == "id" {
				out[i] = vx.VID.V
				continue
			}
			if v, ok := row.Property(entityVal, c); ok {
				out[i] = v
			} else {
				out[i] = value.Null()
			}
		}
		rows = append(rows, out)
	}
	s.Stats().AddRow(int64(len(rows)))
	return ValuesResult(cols, rows), nil
}

// FulltextIndexScan delegates a query string to storage's fulltext
// index and returns (entity, score) pairs (§4.C).
type FulltextIndexScan struct {
	Base
	Search func(ctx context.Context, query string, limit int) ([]FulltextHit, error)
	Query  string
	Limit  int
	done   bool
}

// FulltextHit is one (entity id, relevance score) result.
type FulltextHit struct {
	EntityID string
	Score    float64
}

func NewFulltextIndexScan(search func(ctx context.Context, query string, limit int) ([]FulltextHit, error), query string, limit int) *FulltextIndexScan {
	return &FulltextIndexScan{
		Base:   NewBase("FulltextIndexScan", "delegates to storage's fulltext index"),
		Search: search,
		Query:  query,
		Limit:  limit,
	}
}

func (f *FulltextIndexScan) Open(context.Context) error { f.markOpen(); f.done = false; return nil }
func (f *FulltextIndexScan) Close() error                { f.markClosed(); return nil }

func (f *FulltextIndexScan) Execute(ctx context.Context) (ExecutionResult, error) {
	if f.done {
		return Empty(), nil
	}
	f.done = true
	hits, err := f.Search(ctx, f.Query, f.Limit)
	if err != nil {
		return ExecutionResult{}, err
	}
	rows := make([][]value.Value, len(hits))
	for i, h := range hits {
		rows[i] = []value.Value{value.String(h.EntityID), value.Float(h.Score)}
	}
	f.Stats().AddRow(int64(len(rows)))
	return ValuesResult([]string{"entity", "score"}, rows), nil
}
