// Aggregate implements §4.C's group-by/aggregate operator: one row
// per distinct group key, each aggregate function threading its own
// running state (AggData) across the rows assigned to that group.
package exec

import (
	"context"
	"math"
	"sort"

	"github.com/orneryd/nordgraph/internal/value"
)

// AggFunc enumerates the aggregate functions named in §4.C.
type AggFunc string

const (
	AggCount      AggFunc = "Count"
	AggSum        AggFunc = "Sum"
	AggAvg        AggFunc = "Avg"
	AggMin        AggFunc = "Min"
	AggMax        AggFunc = "Max"
	AggCollect    AggFunc = "Collect"
	AggDistinct   AggFunc = "Distinct"
	AggPercentile AggFunc = "Percentile"
	AggStd        AggFunc = "Std"
	AggBitAnd     AggFunc = "BitAnd"
	AggBitOr      AggFunc = "BitOr"
	AggGroupConcat AggFunc = "GroupConcat"
)

// AggSpec names one aggregate function's input column and, for
// Percentile, the percentile argument (0-100).
type AggSpec struct {
	Func       AggFunc
	Column     int
	Percentile float64
	Separator  string // GroupConcat
}

// AggData holds one group's running state for one AggSpec, matching
// §4.C: "current result plus helper slots (sum, cnt, avg, deviation,
// distinct_set)".
type AggData struct {
	result      value.Value
	sum         float64
	sumIsFloat  bool
	cnt         int64
	mean        float64 // Welford's online mean, feeds Std's variance
	m2          float64
	distinctSet map[string]value.Value
	samples     []float64 // Percentile
	bitAnd      int64
	bitOr       int64
	bitInit     bool
	concatParts []string
	bad         bool // a non-numeric value was seen by Sum/Avg; freeze at BadData
}

func newAggData() *AggData {
	return &AggData{result: value.Null(), distinctSet: make(map[string]value.Value)}
}

// update feeds one row's value into the running aggregate, per the
// null-handling rules of §4.C: count counts non-null; sum/avg skip
// null; a non-numeric input to sum/avg freezes the result at
// BadData and all further updates are ignored.
func (d *AggData) update(spec AggSpec, v value.Value) {
	if d.bad {
		return
	}
	switch spec.Func {
	case AggCount:
		if !v.IsNull() {
			d.cnt++
		}
		d.result = value.Int(d.cnt)
	case AggSum:
		if v.IsNull() {
			return
		}
		if !v.IsNumeric() {
			d.bad = true
			d.result = value.BadData()
			return
		}
		if v.Kind == value.KindFloat {
			d.sumIsFloat = true
		}
		d.sum += v.AsFloat()
		d.cnt++
		if d.sumIsFloat {
			d.result = value.Float(d.sum)
		} else {
			d.result = value.Int(int64(d.sum))
		}
	case AggAvg:
		if v.IsNull() {
			return
		}
		if !v.IsNumeric() {
			d.bad = true
			d.result = value.BadData()
			return
		}
		d.cnt++
		d.sum += v.AsFloat()
		d.result = value.Float(d.sum / float64(d.cnt))
	case AggMin:
		if v.IsNull() {
			return
		}
		if d.result.IsNull() || value.Less(v, d.result).IsTrue() {
			d.result = v
		}
	case AggMax:
		if v.IsNull() {
			return
		}
		if d.result.IsNull() || value.Less(d.result, v).IsTrue() {
			d.result = v
		}
	case AggCollect:
		items := append(d.result.List(), v)
		d.result = value.List(items)
	case AggDistinct:
		k := value.HashKey(v)
		if _, seen := d.distinctSet[k]; !seen {
			d.distinctSet[k] = v
			items := d.result.List()
			d.result = value.List(append(items, v))
		}
	case AggPercentile:
		if !v.IsNumeric() {
			return
		}
		d.samples = append(d.samples, v.AsFloat())
		d.result = value.Float(percentile(d.samples, spec.Percentile))
	case AggStd:
		if !v.IsNumeric() {
			return
		}
		d.cnt++
		x := v.AsFloat()
		delta := x - d.mean
		d.mean += delta / float64(d.cnt)
		d.m2 += delta * (x - d.mean)
		if d.cnt > 1 {
			d.result = value.Float(math.Sqrt(d.m2 / float64(d.cnt-1)))
		}
	case AggBitAnd:
		if !v.IsNumeric() {
			return
		}
		if !d.bitInit {
			d.bitAnd = v.Int()
			d.bitInit = true
		} else {
			d.bitAnd &= v.Int()
		}
		d.result = value.Int(d.bitAnd)
	case AggBitOr:
		if !v.IsNumeric() {
			return
		}
		d.bitOr |= v.Int()
		d.result = value.Int(d.bitOr)
	case AggGroupConcat:
		if v.IsNull() {
			return
		}
		d.concatParts = append(d.concatParts, v.String())
		sep := spec.Separator
		if sep == "" {
			sep = ","
		}
		joined := ""
		for i, p := range d.concatParts {
			if i > 0 {
				joined += sep
			}
			joined += p
		}
		d.result = value.String(joined)
	}
}

func percentile(samples []float64, p float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Aggregate groups rows by GroupKeyCols and computes Specs per group
// (§4.C).
type Aggregate struct {
	Base
	Child         Operator
	GroupKeyCols  []int
	Specs         []AggSpec
	OutputColumns []string
}

func NewAggregate(child Operator, groupKeyCols []int, specs []AggSpec, outputColumns []string) *Aggregate {
	return &Aggregate{
		Base:          NewBase("Aggregate", "one row per group"),
		Child:         child,
		GroupKeyCols:  groupKeyCols,
		Specs:         specs,
		OutputColumns: outputColumns,
	}
}

func (a *Aggregate) Open(ctx context.Context) error { a.markOpen(); return a.Child.Open(ctx) }
func (a *Aggregate) Close() error                     { a.markClosed(); return a.Child.Close() }

func (a *Aggregate) Execute(ctx context.Context) (ExecutionResult, error) {
	res, err := a.Child.Execute(ctx)
	if err != nil {
		return ExecutionResult{}, err
	}
	if res.Kind != ResultValues {
		return res, nil
	}

	type group struct {
		keyVals []value.Value
		aggs    []*AggData
	}
	groups := make(map[string]*group)
	var order []string

	for _, row := range res.Rows {
		keyParts := make([]string, len(a.GroupKeyCols))
		keyVals := make([]value.Value, len(a.GroupKeyCols))
		for i, c := range a.GroupKeyCols {
			keyVals[i] = row[c]
			keyParts[i] = value.HashKey(row[c])
		}
		gk := ""
		for _, p := range keyParts {
			gk += p + "\x00"
		}
		g, ok := groups[gk]
		if !ok {
			g = &group{keyVals: keyVals, aggs: make([]*AggData, len(a.Specs))}
			for i := range g.aggs {
				g.aggs[i] = newAggData()
			}
			groups[gk] = g
			order = append(order, gk)
		}
		for i, spec := range a.Specs {
			g.aggs[i].update(spec, row[spec.Column])
		}
	}

	if len(order) == 0 && len(a.GroupKeyCols) == 0 {
		// §8 boundary case: a global aggregate (no GROUP BY columns)
		// over zero input rows still emits one row — count reads 0,
		// every other aggregate reads null — rather than disappearing.
		g := &group{aggs: make([]*AggData, len(a.Specs))}
		for i, spec := range a.Specs {
			g.aggs[i] = newAggData()
			if spec.Func == AggCount {
				g.aggs[i].result = value.Int(0)
			}
		}
		groups[""] = g
		order = append(order, "")
	}

	rows := make([][]value.Value, 0, len(order))
	for _, gk := range order {
		g := groups[gk]
		row := append([]value.Value{}, g.keyVals...)
		for _, ad := range g.aggs {
			row = append(row, ad.result)
		}
		rows = append(rows, row)
	}
	a.Stats().AddRow(int64(len(rows)))
	return ValuesResult(a.OutputColumns, rows), nil
}
