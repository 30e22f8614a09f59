package exec

import (
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/value"
)

// Row binds variable names to values for one execution-tree row; it
// implements expr.Env so Filter/Project/Aggregate can evaluate
// predicates and projections against it.
type Row struct {
	vars   map[string]value.Value
	params map[string]value.Value
}

func NewRow(params map[string]value.Value) *Row {
	return &Row{vars: make(map[string]value.Value), params: params}
}

func (r *Row) Clone() *Row {
	cp := &Row{vars: make(map[string]value.Value, len(r.vars)), params: r.params}
	for k, v := range r.vars {
		cp.vars[k] = v
	}
	return cp
}

func (r *Row) Set(name string, v value.Value) { r.vars[name] = v }

func (r *Row) Variable(name string) (value.Value, bool) {
	v, ok := r.vars[name]
	return v, ok
}

func (r *Row) Parameter(name string) (value.Value, bool) {
	v, ok := r.params[name]
	return v, ok
}

// Property resolves `entity.prop` against a vertex- or edge-typed
// value carried in a row variable; other kinds have no properties.
func (r *Row) Property(entity value.Value, prop string) (value.Value, bool) {
	return entityProperty(entity, prop)
}

// entityProperty resolves `entity.prop` against a vertex, edge, or map
// value regardless of which row representation carries it — shared by
// Row.Property and rowEnv.Property so a scanned vertex/edge bound
// directly into a ValuesResult column (no Row wrapper) resolves
// property access the same way one bound through Row does.
func entityProperty(entity value.Value, prop string) (value.Value, bool) {
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

// VertexValue/EdgeValue wrap a graph entity as a value.Value so it
// can be bound into a Row and later unwrapped by Property.
func VertexValue(vx model.Vertex) value.Value { return value.Graph(value.KindVertex, vx) }
func EdgeValue(ed model.Edge) value.Value     { return value.Graph(value.KindEdge, ed) }
