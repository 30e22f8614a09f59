// Row batching: caps how many rows move through one execute() pull
// so a single operator call can't buffer an unbounded result set in
// memory. Grounded on original_source's src/executor/batch.rs, which
// caps a RowBatch at a configured size and signals the caller via a
// continuation handle rather than returning everything in one shot;
// this is a SPEC_FULL supplement, since the distilled spec describes
// ExecutionResult as a single shot per execute() call without
// mentioning a batch-size cap.
package exec

import (
	"context"

	"github.com/orneryd/nordgraph/internal/value"
)

// DefaultBatchSize matches original_source's constant (1024 rows).
const DefaultBatchSize = 1024

// Batcher wraps a fully-materialized row set and serves it out in
// fixed-size slices across repeated calls, so a downstream operator
// that only wants to stream a bounded number of rows at a time
// (e.g. a network result cursor) isn't forced to hold the whole
// result in memory at once.
type Batcher struct {
	cols      []string
	rows      [][]value.Value
	batchSize int
	offset    int
}

func NewBatcher(cols []string, rows [][]value.Value, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Batcher{cols: cols, rows: rows, batchSize: batchSize}
}

// Next returns the next batch and whether any rows remain after it.
func (b *Batcher) Next() (ExecutionResult, bool) {
	if b.offset >= len(b.rows) {
		return Empty(), false
	}
	end := b.offset + b.batchSize
	if end > len(b.rows) {
		end = len(b.rows)
	}
	batch := b.rows[b.offset:end]
	b.offset = end
	return ValuesResult(b.cols, batch), b.offset < len(b.rows)
}

// BatchedOperator wraps a child operator whose single Execute() call
// already returns a fully materialized ValuesResult, and re-serves it
// in BatchSize-capped pulls (DefaultBatchSize when BatchSize <= 0)
// on every subsequent Execute() call
// — satisfying the pull contract's "operators carry stats across
// multiple execute calls" clause for the common case of a child that
// isn't itself incremental.
type BatchedOperator struct {
	Base
	Child     Operator
	BatchSize int
	batcher   *Batcher
	started   bool
}

func NewBatchedOperator(child Operator, batchSize int) *BatchedOperator {
	return &BatchedOperator{Base: NewBase("Batch", "caps rows per execute() pull"), Child: child, BatchSize: batchSize}
}

func (b *BatchedOperator) Open(ctx context.Context) error {
	b.markOpen()
	b.started = false
	return b.Child.Open(ctx)
}

func (b *BatchedOperator) Close() error {
	b.markClosed()
	return b.Child.Close()
}

func (b *BatchedOperator) Execute(ctx context.Context) (ExecutionResult, error) {
	if !b.started {
		res, err := b.Child.Execute(ctx)
		if err != nil {
			return ExecutionResult{}, err
		}
		if res.Kind != ResultValues {
			b.started = true
			return res, nil
		}
		b.batcher = NewBatcher(res.Columns, res.Rows, b.BatchSize)
		b.started = true
	}
	if b.batcher == nil {
		return Empty(), nil
	}
	res, more := b.batcher.Next()
	if !more {
		b.batcher = nil
	}
	b.Stats().AddRow(int64(res.Len()))
	return res, nil
}
