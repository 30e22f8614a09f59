// Statistics and cost model (§4.E), plus the ANALYZE command
// (SPEC_FULL supplement #3, grounded on original_source's
// src/query/optimizer/core/analyze.rs). Kept in the catalog package
// because statistics are schema-adjacent, per-space state the
// optimizer reads as snapshots (§5 shared-resource policy).
package catalog

import (
	"context"
	"math"
	"sort"

	"github.com/orneryd/nordgraph/internal/value"
)

// MCVEntry is one most-common-value entry: a value plus its observed
// frequency normalized to [0,1].
type MCVEntry struct {
	Value     value.Value
	Frequency float64
}

// HistogramBucket is one equi-frequency bucket boundary.
type HistogramBucket struct {
	Lower value.Value
	Upper value.Value
	Frac  float64 // fraction of non-MCV rows falling in this bucket
}

// ColumnStatistics summarizes one property's value distribution.
type ColumnStatistics struct {
	NullFraction  float64
	DistinctCount int64
	MCV           []MCVEntry
	Histogram     []HistogramBucket
}

// IndexStatistics summarizes one index's selectivity characteristics.
type IndexStatistics struct {
	IndexName     string
	DistinctKeys  int64
	AvgEntriesPerKey float64
}

// TableStatistics aggregates per-space cardinality and per-column
// stats, keyed by "tag_or_edge:property".
type TableStatistics struct {
	RowCount int64
	Columns  map[string]*ColumnStatistics
	Indexes  map[string]*IndexStatistics
}

func newTableStatistics() *TableStatistics {
	return &TableStatistics{
		Columns: make(map[string]*ColumnStatistics),
		Indexes: make(map[string]*IndexStatistics),
	}
}

// Stats returns a read snapshot of a space's statistics (optimizer
// reads snapshots per §5's shared-resource policy; it never holds the
// catalog lock across cost computation).
func (c *Catalog) Stats(space string) *TableStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.stats[space]
	if !ok {
		return newTableStatistics()
	}
	cp := *st
	cp.Columns = make(map[string]*ColumnStatistics, len(st.Columns))
	for k, v := range st.Columns {
		vv := *v
		cp.Columns[k] = &vv
	}
	return &cp
}

// EntitySampler is the minimal read surface ANALYZE needs from
// storage: enumerate sample property values for a tag/edge-type
// column. Storage satisfies this structurally without catalog
// importing the storage package.
type EntitySampler interface {
	SampleColumn(ctx context.Context, space, target, property string, sampleFraction float64) ([]value.Value, int64, error)
}

// Analyze recomputes TableStatistics/ColumnStatistics for a space by
// sampling storage (SPEC_FULL supplement #3). Column sets to analyze
// come from every declared tag/edge-type property. IndexStatistics are
// not computed: the recomputed statistics carry no index entries.
func (c *Catalog) Analyze(ctx context.Context, sampler EntitySampler, space string, sampleFraction float64) error {
	c.mu.RLock()
	tags := c.tags[space]
	edgeTypes := c.edgeTypes[space]
	targets := make(map[string][]PropertyDef, len(tags)+len(edgeTypes))
	for name, t := range tags {
		targets[name] = t.Properties
	}
	for name, et := range edgeTypes {
		targets[name] = et.Properties
	}
	c.mu.RUnlock()

	st := newTableStatistics()
	var totalRows int64
	for target, props := range targets {
		for _, p := range props {
			samples, rowCount, err := sampler.SampleColumn(ctx, space, target, p.Name, sampleFraction)
			if err != nil {
				return err
			}
			if rowCount > totalRows {
				totalRows = rowCount
			}
			st.Columns[target+":"+p.Name] = computeColumnStatistics(samples)
		}
	}
	st.RowCount = totalRows

	c.mu.Lock()
	c.stats[space] = st
	c.mu.Unlock()
	return nil
}

// computeColumnStatistics builds an MCV list (top-10 by frequency)
// plus an equi-frequency histogram over the remaining, non-MCV
// values, following §4.E.
func computeColumnStatistics(samples []value.Value) *ColumnStatistics {
	cs := &ColumnStatistics{}
	if len(samples) == 0 {
		return cs
	}

	counts := make(map[string]int)
	reps := make(map[string]value.Value)
	nullCount := 0
	for _, v := range samples {
		if v.IsNull() {
			nullCount++
			continue
		}
		k := value.HashKey(v)
		counts[k]++
		reps[k] = v
	}
	cs.NullFraction = float64(nullCount) / float64(len(samples))
	cs.DistinctCount = int64(len(counts))

	type kv struct {
		key   string
		count int
	}
	ordered := make([]kv, 0, len(counts))
	for k, n := range counts {
		ordered = append(ordered, kv{k, n})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].count > ordered[j].count })

	nonNull := len(samples) - nullCount
	mcvLimit := 10
	if len(ordered) < mcvLimit {
		mcvLimit = len(ordered)
	}
	mcvKeys := make(map[string]struct{}, mcvLimit)
	for i := 0; i < mcvLimit; i++ {
		cs.MCV = append(cs.MCV, MCVEntry{
			Value:     reps[ordered[i].key],
			Frequency: float64(ordered[i].count) / float64(nonNull),
		})
		mcvKeys[ordered[i].key] = struct{}{}
	}

	// Equi-frequency histogram over the non-MCV values.
	var rest []value.Value
	for _, v := range samples {
		if v.IsNull() {
			continue
		}
		if _, isMCV := mcvKeys[value.HashKey(v)]; isMCV {
			continue
		}
		rest = append(rest, v)
	}
	cs.Histogram = buildEquiFrequencyHistogram(rest, 10)
	return cs
}

func buildEquiFrequencyHistogram(vals []value.Value, numBuckets int) []HistogramBucket {
	if len(vals) == 0 {
		return nil
	}
	sorted := append([]value.Value(nil), vals...)
	sort.Slice(sorted, func(i, j int) bool { return value.Cmp(sorted[i], sorted[j]) < 0 })

	if numBuckets > len(sorted) {
		numBuckets = len(sorted)
	}
	if numBuckets == 0 {
		return nil
	}
	bucketSize := len(sorted) / numBuckets
	if bucketSize == 0 {
		bucketSize = 1
	}
	var buckets []HistogramBucket
	for i := 0; i < len(sorted); i += bucketSize {
		end := i + bucketSize
		if end > len(sorted) || len(sorted)-end < bucketSize {
			end = len(sorted)
		}
		buckets = append(buckets, HistogramBucket{
			Lower: sorted[i],
			Upper: sorted[end-1],
			Frac:  float64(end-i) / float64(len(sorted)),
		})
		if end == len(sorted) {
			break
		}
	}
	return buckets
}

// Selectivity estimates the fraction of rows matching `op value` over
// a column, using the MCV list for an exact hit, the histogram for a
// range, and 1/distinct_count as the fallback — exactly the three
// tiers named in §4.E.
func (cs *ColumnStatistics) Selectivity(op string, v value.Value) float64 {
	if cs == nil || cs.DistinctCount == 0 {
		return 1.0
	}
	if op == "=" {
		for _, m := range cs.MCV {
			if value.Equal(m.Value, v).IsTrue() {
				return m.Frequency
			}
		}
		return 1.0 / float64(cs.DistinctCount)
	}
	if op == "<" || op == "<=" || op == ">" || op == ">=" {
		if len(cs.Histogram) == 0 {
			return 0.5
		}
		var frac float64
		for _, b := range cs.Histogram {
			inRange := false
			switch op {
			case "<", "<=":
				inRange = value.Cmp(b.Lower, v) <= 0
			case ">", ">=":
				inRange = value.Cmp(b.Upper, v) >= 0
			}
			if inRange {
				frac += b.Frac
			}
		}
		return math.Min(1.0, math.Max(0.0, frac))
	}
	return 1.0
}

// Cost computes rows*per-row-cost adjusted by selectivity, per §4.E:
// `Cost = rows * per-row-cost, adjusted by selectivity`.
func Cost(rows int64, perRowCost, selectivity float64) float64 {
	return float64(rows) * perRowCost * selectivity
}
