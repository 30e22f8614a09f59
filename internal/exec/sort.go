package exec

import (
	"container/heap"
	"context"
	"sort"

	"github.com/orneryd/nordgraph/internal/value"
)

// OrderKey is one ORDER BY term.
type OrderKey struct {
	Column     int
	Descending bool
}

// Sort orders rows by OrderKeys (§4.C).
type Sort struct {
	Base
	Child Operator
	Keys  []OrderKey
}

func NewSort(child Operator, keys []OrderKey) *Sort {
	return &Sort{Base: NewBase("Sort", "ordered rows"), Child: child, Keys: keys}
}

func (s *Sort) Open(ctx context.Context) error { s.markOpen(); return s.Child.Open(ctx) }
func (s *Sort) Close() error                    { s.markClosed(); return s.Child.Close() }

func (s *Sort) Execute(ctx context.Context) (ExecutionResult, error) {
	res, err := s.Child.Execute(ctx)
	if err != nil {
		return ExecutionResult{}, err
	}
	if res.Kind != ResultValues {
		return res, nil
	}
	sort.SliceStable(res.Rows, func(i, j int) bool { return less(res.Rows[i], res.Rows[j], s.Keys) })
	s.Stats().AddRow(int64(len(res.Rows)))
	return res, nil
}

func less(a, b []value.Value, keys []OrderKey) bool {
	for _, k := range keys {
		if k.Column >= len(a) || k.Column >= len(b) {
			continue
		}
		c := value.Cmp(a[k.Column], b[k.Column])
		if c == 0 {
			continue
		}
		if k.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

// topNHeap is a bounded max-heap (by the *opposite* of the sort
// order) used to keep only the N best rows while scanning the whole
// child output once, grounded on the teacher's reliance on
// container/heap-style bounded structures in apoc/algo/algo.go.
type topNHeap struct {
	rows []([]value.Value)
	keys []OrderKey
}

func (h *topNHeap) Len() int { return len(h.rows) }
func (h *topNHeap) Less(i, j int) bool {
	// Inverted: the heap's root is the worst of the kept rows, so
	// popping it when a better row arrives evicts the right one.
	return less(h.rows[j], h.rows[i], h.keys)
}
func (h *topNHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *topNHeap) Push(x any)    { h.rows = append(h.rows, x.([]value.Value)) }
func (h *topNHeap) Pop() any {
	old := h.rows
	n := len(old)
	v := old[n-1]
	h.rows = old[:n-1]
	return v
}

// TopN combines Sort+Limit into a single bounded-heap pass, avoiding
// a full sort when only the top N rows are needed.
type TopN struct {
	Base
	Child Operator
	Keys  []OrderKey
	N     int
}

func NewTopN(child Operator, keys []OrderKey, n int) *TopN {
	return &TopN{Base: NewBase("TopN", "top-N ordered rows"), Child: child, Keys: keys, N: n}
}

func (t *TopN) Open(ctx context.Context) error { t.markOpen(); return t.Child.Open(ctx) }
func (t *TopN) Close() error                    { t.markClosed(); return t.Child.Close() }

func (t *TopN) Execute(ctx context.Context) (ExecutionResult, error) {
	res, err := t.Child.Execute(ctx)
	if err != nil {
		return ExecutionResult{}, err
	}
	if res.Kind != ResultValues || t.N <= 0 {
		return ValuesResult(res.Columns, nil), nil
	}
	h := &topNHeap{keys: t.Keys}
	for _, row := range res.Rows {
		if h.Len() < t.N {
			heap.Push(h, row)
			continue
		}
		if less(row, h.rows[0], t.Keys) {
			h.rows[0] = row
			heap.Fix(h, 0)
		}
	}
	out := make([][]value.Value, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).([]value.Value)
	}
	t.Stats().AddRow(int64(len(out)))
	return ValuesResult(res.Columns, out), nil
}
