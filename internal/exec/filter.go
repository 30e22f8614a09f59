package exec

import (
	"context"

	"github.com/orneryd/nordgraph/internal/expr"
	"github.com/orneryd/nordgraph/internal/value"
)

// rowEnv adapts one ValuesResult row (given its column names) to
// expr.Env so existing Binary/PropertyAccess nodes evaluate against
// it without a dependency from package expr back to exec.
type rowEnv struct {
	cols   []string
	row    []value.Value
	params map[string]value.Value
	row2   *Row // optional richer row (vertex/edge bound as variables), preferred when set
}

func (e *rowEnv) Variable(name string) (value.Value, bool) {
	if e.row2 != nil {
		if v, ok := e.row2.Variable(name); ok {
			return v, ok
		}
	}
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
	if e.row2 != nil {
		return e.row2.Property(entity, prop)
	}
	return entityProperty(entity, prop)
}

// Filter passes through only rows for which Predicate evaluates true
// (§4.C). Non-bool/null predicate results drop the row, matching the
// three-valued-logic convention used throughout expr.
type Filter struct {
	Base
	Child     Operator
	Predicate expr.Expr
	Params    map[string]value.Value
}

func NewFilter(child Operator, predicate expr.Expr, params map[string]value.Value) *Filter {
	return &Filter{Base: NewBase("Filter", "rows passing predicate"), Child: child, Predicate: predicate, Params: params}
}

func (f *Filter) Open(ctx context.Context) error {
	f.markOpen()
	return f.Child.Open(ctx)
}

func (f *Filter) Close() error {
	f.markClosed()
	return f.Child.Close()
}

func (f *Filter) Execute(ctx context.Context) (ExecutionResult, error) {
	res, err := f.Child.Execute(ctx)
	if err != nil {
		return ExecutionResult{}, err
	}
	if res.Kind != ResultValues {
		return res, nil
	}
	var kept [][]value.Value
	for _, row := range res.Rows {
		env := &rowEnv{cols: res.Columns, row: row, params: f.Params}
		v, err := f.Predicate.Eval(env)
		if err != nil {
			return ExecutionResult{}, err
		}
		if v.IsTrue() {
			kept = append(kept, row)
		}
	}
	f.Stats().AddRow(int64(len(kept)))
	return ValuesResult(res.Columns, kept), nil
}

// Project evaluates Expressions against each input row, renaming
// columns per Aliases (§4.C).
type Project struct {
	Base
	Child       Operator
	Expressions []expr.Expr
	Aliases     []string
	Params      map[string]value.Value
}

func NewProject(child Operator, exprs []expr.Expr, aliases []string, params map[string]value.Value) *Project {
	return &Project{Base: NewBase("Project", "transformed rows"), Child: child, Expressions: exprs, Aliases: aliases, Params: params}
}

func (p *Project) Open(ctx context.Context) error { p.markOpen(); return p.Child.Open(ctx) }
func (p *Project) Close() error                    { p.markClosed(); return p.Child.Close() }

func (p *Project) Execute(ctx context.Context) (ExecutionResult, error) {
	res, err := p.Child.Execute(ctx)
	if err != nil {
		return ExecutionResult{}, err
	}
	if res.Kind != ResultValues {
		return res, nil
	}
	out := make([][]value.Value, 0, len(res.Rows))
	for _, row := range res.Rows {
		env := &rowEnv{cols: res.Columns, row: row, params: p.Params}
		projected := make([]value.Value, len(p.Expressions))
		for i, e := range p.Expressions {
			v, err := e.Eval(env)
			if err != nil {
				return ExecutionResult{}, err
			}
			projected[i] = v
		}
		out = append(out, projected)
	}
	p.Stats().AddRow(int64(len(out)))
	return ValuesResult(p.Aliases, out), nil
}

// Limit passes through at most N rows; Skip drops the first N.
type Limit struct {
	Base
	Child Operator
	N     int
}

func NewLimit(child Operator, n int) *Limit {
	return &Limit{Base: NewBase("Limit", "caps output row count"), Child: child, N: n}
}

func (l *Limit) Open(ctx context.Context) error { l.markOpen(); return l.Child.Open(ctx) }
func (l *Limit) Close() error                    { l.markClosed(); return l.Child.Close() }

func (l *Limit) Execute(ctx context.Context) (ExecutionResult, error) {
	res, err := l.Child.Execute(ctx)
	if err != nil {
		return ExecutionResult{}, err
	}
	if res.Kind != ResultValues {
		return res, nil
	}
	if len(res.Rows) > l.N {
		res.Rows = res.Rows[:l.N]
	}
	l.Stats().AddRow(int64(len(res.Rows)))
	return res, nil
}

type Skip struct {
	Base
	Child Operator
	N     int
}

func NewSkip(child Operator, n int) *Skip {
	return &Skip{Base: NewBase("Skip", "drops leading rows"), Child: child, N: n}
}

func (s *Skip) Open(ctx context.Context) error { s.markOpen(); return s.Child.Open(ctx) }
func (s *Skip) Close() error                    { s.markClosed(); return s.Child.Close() }

func (s *Skip) Execute(ctx context.Context) (ExecutionResult, error) {
	res, err := s.Child.Execute(ctx)
	if err != nil {
		return ExecutionResult{}, err
	}
	if res.Kind != ResultValues {
		return res, nil
	}
	if s.N >= len(res.Rows) {
		res.Rows = nil
	} else {
		res.Rows = res.Rows[s.N:]
	}
	s.Stats().AddRow(int64(len(res.Rows)))
	return res, nil
}
