// Package memory implements kv.Backend over a guarded Go map. It is
// the default backend for tests and small embedded deployments,
// grounded on the teacher's pkg/storage/memory.go concurrency pattern
// (a single sync.RWMutex around plain maps).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/orneryd/nordgraph/internal/storage/kv"
)

// Backend is an in-memory kv.Backend implementation.
type Backend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

func (b *Backend) Get(_ context.Context, key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[string(key)]
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *Backend) Set(_ context.Context, key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	b.data[string(key)] = cp
	return nil
}

func (b *Backend) Delete(_ context.Context, key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, string(key))
	return nil
}

func (b *Backend) IteratePrefix(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	b.mu.RLock()
	keys := make([]string, 0, len(b.data))
	p := string(prefix)
	for k := range b.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	snapshot := make(map[string][]byte, len(keys))
	for _, k := range keys {
		snapshot[k] = b.data[k]
	}
	b.mu.RUnlock()

	for _, k := range keys {
		if !fn([]byte(k), snapshot[k]) {
			break
		}
	}
	return nil
}

func (b *Backend) Close() error { return nil }
