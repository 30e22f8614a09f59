// Insert/Update/Delete and CreateIndex/DropIndex operators (§4.C),
// wired against storage.Engine and catalog.Catalog. Grounded on the
// teacher's CREATE/MERGE/DELETE handling in pkg/cypher/executor.go,
// generalized from Cypher-specific node/relationship literals into
// the planner-supplied (vid, properties) / (edge key, properties)
// payload shape of §4.C's operator table.
package exec

import (
	"context"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/value"
)

// VertexWrite is one vertex to insert/update/delete, with an optional
// per-row condition (re-evaluated against the existing entity before
// an Update applies) and Insertable marking upsert semantics.
type VertexWrite struct {
	Vertex     model.Vertex
	Condition  expr.Expr
	Insertable bool
}

// MutateVertices implements Insert/Update/Delete over vertices. Kind
// selects the operation; Writes supplies the payload.
type MutateVertices struct {
	Base
	Engine  *storage.Engine
	Catalog *catalog.Catalog
	Tx      *storage.Tx
	Space   string
	Kind    string // "insert" | "update" | "delete"
	Writes  []VertexWrite
	Params  map[string]value.Value
	done    bool
}

func NewMutateVertices(e *storage.Engine, cat *catalog.Catalog, tx *storage.Tx, space, kind string, writes []VertexWrite, params map[string]value.Value) *MutateVertices {
	return &MutateVertices{
		Base:    NewBase("MutateVertices", "insert/update/delete vertices"),
		Engine:  e,
		Catalog: cat,
		Tx:      tx,
		Space:   space,
		Kind:    kind,
		Writes:  writes,
		Params:  params,
	}
}

func (m *MutateVertices) Open(context.Context) error { m.markOpen(); m.done = false; return nil }
func (m *MutateVertices) Close() error                { m.markClosed(); return nil }

func (m *MutateVertices) Execute(ctx context.Context) (ExecutionResult, error) {
	if m.done {
		return Empty(), nil
	}
	m.done = true

	var n uint64
	for _, w := range m.Writes {
		if tag := m.primaryTag(w.Vertex); tag != "" {
			if schema, ok := m.Catalog.GetTag(m.Space, tag); ok {
				if err := m.Catalog.ValidateProperties(schema.Properties, w.Vertex.TagProperties(tag)); err != nil {
					return ExecutionResult{}, err
				}
			} else {
				if _, err := m.Catalog.AutoCreateTag(m.Space, tag, w.Vertex.TagProperties(tag)); err != nil {
					return ExecutionResult{}, err
				}
			}
		}

		switch m.Kind {
		case "insert":
			if err := m.Engine.InsertVertex(m.Tx, m.Space, &w.Vertex); err != nil {
				return ExecutionResult{}, err
			}
			n++
		case "update":
			if w.Condition != nil {
				existing, ok, err := m.Engine.GetVertex(m.Tx, m.Space, w.Vertex.VID)
				if err != nil {
					return ExecutionResult{}, err
				}
				if !ok {
					if w.Insertable {
						if err := m.Engine.InsertVertex(m.Tx, m.Space, &w.Vertex); err != nil {
							return ExecutionResult{}, err
						}
						n++
					}
					continue
				}
				env := &rowEnv{row2: rowFromVertex(*existing)}
				keep, err := w.Condition.Eval(env)
				if err != nil {
					return ExecutionResult{}, err
				}
				if !keep.IsTrue() {
					continue
				}
			}
			if err := m.Engine.UpsertVertex(m.Tx, m.Space, &w.Vertex); err != nil {
				return ExecutionResult{}, err
			}
			n++
		case "delete":
			if err := m.Engine.DeleteVertex(m.Tx, m.Space, w.Vertex.VID); err != nil {
				return ExecutionResult{}, err
			}
			n++
		}
	}
	m.Stats().AddRow(int64(n))
	return CountResult(n), nil
}

func (m *MutateVertices) primaryTag(vx model.Vertex) string {
	if len(vx.Tags) == 0 {
		return ""
	}
	return vx.Tags[0].Name
}

func rowFromVertex(vx model.Vertex) *Row {
	r := NewRow(nil)
	r.Set("self", VertexValue(vx))
	return r
}

// EdgeWrite is one edge to insert/update/delete.
type EdgeWrite struct {
	Edge       model.Edge
	Condition  expr.Expr
	Insertable bool
}

// MutateEdges implements Insert/Update/Delete over edges.
type MutateEdges struct {
	Base
	Engine *storage.Engine
	Tx     *storage.Tx
	Space  string
	Kind   string
	Writes []EdgeWrite
	done   bool
}

func NewMutateEdges(e *storage.Engine, tx *storage.Tx, space, kind string, writes []EdgeWrite) *MutateEdges {
	return &MutateEdges{Base: NewBase("MutateEdges", "insert/update/delete edges"), Engine: e, Tx: tx, Space: space, Kind: kind, Writes: writes}
}

func (m *MutateEdges) Open(context.Context) error { m.markOpen(); m.done = false; return nil }
func (m *MutateEdges) Close() error                { m.markClosed(); return nil }

func (m *MutateEdges) Execute(ctx context.Context) (ExecutionResult, error) {
	if m.done {
		return Empty(), nil
	}
	m.done = true
	var n uint64
	for _, w := range m.Writes {
		switch m.Kind {
		case "insert":
			if err := m.Engine.InsertEdge(m.Tx, m.Space, &w.Edge); err != nil {
				return ExecutionResult{}, err
			}
			n++
		case "update":
			if _, ok, err := m.Engine.GetEdge(m.Tx, m.Space, w.Edge.EdgeKey); err != nil {
				return ExecutionResult{}, err
			} else if !ok {
				if w.Insertable {
					if err := m.Engine.InsertEdge(m.Tx, m.Space, &w.Edge); err != nil {
						return ExecutionResult{}, err
					}
					n++
				}
				continue
			}
			if err := m.Engine.UpdateEdge(m.Tx, m.Space, &w.Edge); err != nil {
				return ExecutionResult{}, err
			}
			n++
		case "delete":
			if err := m.Engine.DeleteEdge(m.Tx, m.Space, w.Edge.EdgeKey); err != nil {
				return ExecutionResult{}, err
			}
			n++
		}
	}
	m.Stats().AddRow(int64(n))
	return CountResult(n), nil
}

// IndexDescriptor names an index to create/drop, mirroring
// catalog.Index's shape (§4.B).
type IndexDescriptor struct {
	Name       string
	Target     string
	Properties []string
	Unique     bool
	Fulltext   bool
}

// CreateIndex / DropIndex: Empty result (§4.C).
type CreateIndexOp struct {
	Base
	Catalog *catalog.Catalog
	Space   string
	Desc    IndexDescriptor
	done    bool
}

func NewCreateIndex(cat *catalog.Catalog, space string, desc IndexDescriptor) *CreateIndexOp {
	return &CreateIndexOp{Base: NewBase("CreateIndex", "index descriptor -> catalog"), Catalog: cat, Space: space, Desc: desc}
}

func (c *CreateIndexOp) Open(context.Context) error { c.markOpen(); c.done = false; return nil }
func (c *CreateIndexOp) Close() error                { c.markClosed(); return nil }

func (c *CreateIndexOp) Execute(ctx context.Context) (ExecutionResult, error) {
	if c.done {
		return Empty(), nil
	}
	c.done = true
	kind := catalog.IndexOnTag
	if c.Desc.Fulltext {
		kind = catalog.IndexFulltext
	}
	if _, err := c.Catalog.CreateIndex(c.Space, catalog.Index{
		Name:       c.Desc.Name,
		Target:     c.Desc.Target,
		Properties: c.Desc.Properties,
		Kind:       kind,
		Unique:     c.Desc.Unique,
	}); err != nil {
		return ExecutionResult{}, err
	}
	return Empty(), nil
}

type DropIndexOp struct {
	Base
	Catalog *catalog.Catalog
	Space   string
	Name    string
	done    bool
}

func NewDropIndex(cat *catalog.Catalog, space, name string) *DropIndexOp {
	return &DropIndexOp{Base: NewBase("DropIndex", "removes an index descriptor"), Catalog: cat, Space: space, Name: name}
}

func (d *DropIndexOp) Open(context.Context) error { d.markOpen(); d.done = false; return nil }
func (d *DropIndexOp) Close() error                { d.markClosed(); return nil }

func (d *DropIndexOp) Execute(ctx context.Context) (ExecutionResult, error) {
	if d.done {
		return Empty(), nil
	}
	d.done = true
	if err := d.Catalog.DropIndex(d.Space, d.Name); err != nil {
		return ExecutionResult{}, err
	}
	return Empty(), nil
}
