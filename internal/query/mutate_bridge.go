package query

import (
	"context"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/value"
)

// mutateVerticesBridge adapts a row-producing child into the
// []exec.VertexWrite literal exec.MutateVertices expects. Two row
// shapes are understood: a bound "__entity" column (the unmodified
// path straight off a Scan/Filter chain) supplies the whole base
// vertex directly, with every other column overlaid onto its
// Properties as a Set clause would; lacking that, an "id" column
// supplies the VID and every other column becomes a property (doubling
// as a named tag's property set when Target != ""), matching the
// "id" + property-columns convention internal/exec.IndexScan's
// ReturnCols already establishes.
type mutateVerticesBridge struct {
	exec.Base
	childHolder
	engine  *storage.Engine
	catalog *catalog.Catalog
	tx      *storage.Tx
	space   string
	target  string
	kind    string
	params  map[string]value.Value
}

func newMutateVerticesBridge(e *storage.Engine, cat *catalog.Catalog, tx *storage.Tx, space, target, kind string, child exec.Operator, params map[string]value.Value) *mutateVerticesBridge {
	return &mutateVerticesBridge{
		Base:        exec.NewBase("MutateVertices", "adapts planned rows into vertex writes"),
		childHolder: childHolder{child: child},
		engine:      e,
		catalog:     cat,
		tx:          tx,
		space:       space,
		target:      target,
		kind:        kind,
		params:      params,
	}
}

func (m *mutateVerticesBridge) Open(ctx context.Context) error { m.MarkOpen(); return m.child.Open(ctx) }
func (m *mutateVerticesBridge) Close() error                    { m.MarkClosed(); return m.child.Close() }

func (m *mutateVerticesBridge) Execute(ctx context.Context) (exec.ExecutionResult, error) {
	res, err := m.child.Execute(ctx)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	writes, err := m.buildWrites(res)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	op := exec.NewMutateVertices(m.engine, m.catalog, m.tx, m.space, m.kind, writes, m.params)
	if err := op.Open(ctx); err != nil {
		return exec.ExecutionResult{}, err
	}
	defer op.Close()
	out, err := op.Execute(ctx)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	m.Stats().AddRow(int64(len(writes)))
	return out, nil
}

func (m *mutateVerticesBridge) buildWrites(res exec.ExecutionResult) ([]exec.VertexWrite, error) {
	if res.Kind == exec.ResultVertices {
		writes := make([]exec.VertexWrite, len(res.Vertices))
		for i, v := range res.Vertices {
			writes[i] = exec.VertexWrite{Vertex: v, Insertable: m.kind == "insert"}
		}
		return writes, nil
	}
	if res.Kind != exec.ResultValues {
		return nil, nil
	}
	idCol, entityCol := -1, -1
	for i, c := range res.Columns {
		switch c {
		case "id":
			idCol = i
		case "__entity":
			entityCol = i
		}
	}
	writes := make([]exec.VertexWrite, 0, len(res.Rows))
	for _, row := range res.Rows {
		if entityCol >= 0 {
			vx, ok := row[entityCol].Graph().(model.Vertex)
			if !ok {
				continue
			}
			for i, c := range res.Columns {
				if i == entityCol {
					continue
				}
				if vx.Properties == nil {
					vx.Properties = make(map[string]value.Value, len(res.Columns))
				}
				vx.Properties[c] = row[i]
			}
			writes = append(writes, exec.VertexWrite{Vertex: vx, Insertable: m.kind == "insert"})
			continue
		}

		props := make(map[string]value.Value, len(res.Columns))
		vid := model.VID{}
		for i, c := range res.Columns {
			if i == idCol {
				vid = model.StringVID(row[i].String())
				continue
			}
			props[c] = row[i]
		}
		if idCol < 0 {
			vid = model.StringVID(value.HashKey(value.Map(props)))
		}
		var tags []model.Tag
		if m.target != "" {
			tags = []model.Tag{{Name: m.target, Properties: props}}
		}
		writes = append(writes, exec.VertexWrite{
			Vertex:     model.Vertex{VID: vid, Tags: tags, Properties: props},
			Insertable: m.kind == "insert",
		})
	}
	return writes, nil
}

// mutateEdgesBridge is mutateVerticesBridge's edge counterpart: a
// bound "__entity" column supplies the whole base edge directly
// (other columns overlaid as properties), otherwise columns "src",
// "dst", "type" (and optionally "rank") identify the edge and every
// remaining column becomes a property.
type mutateEdgesBridge struct {
	exec.Base
	childHolder
	engine *storage.Engine
	tx     *storage.Tx
	space  string
	kind   string
}

func newMutateEdgesBridge(e *storage.Engine, tx *storage.Tx, space, kind string, child exec.Operator) *mutateEdgesBridge {
	return &mutateEdgesBridge{
		Base:        exec.NewBase("MutateEdges", "adapts planned rows into edge writes"),
		childHolder: childHolder{child: child},
		engine:      e,
		tx:          tx,
		space:       space,
		kind:        kind,
	}
}

func (m *mutateEdgesBridge) Open(ctx context.Context) error { m.MarkOpen(); return m.child.Open(ctx) }
func (m *mutateEdgesBridge) Close() error                    { m.MarkClosed(); return m.child.Close() }

func (m *mutateEdgesBridge) Execute(ctx context.Context) (exec.ExecutionResult, error) {
	res, err := m.child.Execute(ctx)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	if res.Kind == exec.ResultEdges {
		writes := make([]exec.EdgeWrite, len(res.Edges))
		for i, e := range res.Edges {
			writes[i] = exec.EdgeWrite{Edge: e, Insertable: m.kind == "insert"}
		}
		return m.runWrites(ctx, writes)
	}
	if res.Kind != exec.ResultValues {
		return exec.Empty(), nil
	}

	colIdx := make(map[string]int, len(res.Columns))
	for i, c := range res.Columns {
		colIdx[c] = i
	}
	if entityCol, ok := colIdx["__entity"]; ok {
		writes := make([]exec.EdgeWrite, 0, len(res.Rows))
		for _, row := range res.Rows {
			ed, ok := row[entityCol].Graph().(model.Edge)
			if !ok {
				continue
			}
			for c, i := range colIdx {
				if c == "__entity" {
					continue
				}
				if ed.Properties == nil {
					ed.Properties = make(map[string]value.Value, len(res.Columns))
				}
				ed.Properties[c] = row[i]
			}
			writes = append(writes, exec.EdgeWrite{Edge: ed, Insertable: m.kind == "insert"})
		}
		return m.runWrites(ctx, writes)
	}

	writes := make([]exec.EdgeWrite, 0, len(res.Rows))
	for _, row := range res.Rows {
		props := make(map[string]value.Value, len(res.Columns))
		var key model.EdgeKey
		for c, i := range colIdx {
			switch c {
			case "src":
				key.Src = model.StringVID(row[i].String())
			case "dst":
				key.Dst = model.StringVID(row[i].String())
			case "type":
				key.Type = row[i].String()
			case "rank":
				key.Rank = row[i].Int()
			default:
				props[c] = row[i]
			}
		}
		writes = append(writes, exec.EdgeWrite{
			Edge:       model.Edge{EdgeKey: key, Properties: props},
			Insertable: m.kind == "insert",
		})
	}
	return m.runWrites(ctx, writes)
}

func (m *mutateEdgesBridge) runWrites(ctx context.Context, writes []exec.EdgeWrite) (exec.ExecutionResult, error) {
	op := exec.NewMutateEdges(m.engine, m.tx, m.space, m.kind, writes)
	if err := op.Open(ctx); err != nil {
		return exec.ExecutionResult{}, err
	}
	defer op.Close()
	out, err := op.Execute(ctx)
	if err != nil {
		return exec.ExecutionResult{}, err
	}
	m.Stats().AddRow(int64(len(writes)))
	return out, nil
}
