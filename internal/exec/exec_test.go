package exec_test

import (
	"context"

	"github.com/orneryd/nordgraph/internal/exec"
)

// staticOperator is a leaf Operator that always returns a fixed
// ExecutionResult, standing in for a real Scan/IndexScan child so
// Filter/Project/Sort/Aggregate can be tested without storage.
type staticOperator struct {
	exec.Base
	result ExecutionResultFn
}

// ExecutionResultFn lets a test vary what the child returns per call,
// though most tests just return a fixed value via newStatic.
type ExecutionResultFn func() exec.ExecutionResult

func newStatic(res exec.ExecutionResult) *staticOperator {
	return &staticOperator{Base: exec.NewBase("Static", "fixed test result"), result: func() exec.ExecutionResult { return res }}
}

func (s *staticOperator) Open(ctx context.Context) error {
	return nil
}

func (s *staticOperator) Close() error { return nil }

func (s *staticOperator) Execute(ctx context.Context) (exec.ExecutionResult, error) {
	return s.result(), nil
}
