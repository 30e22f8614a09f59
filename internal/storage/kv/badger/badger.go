// Package badger implements kv.Backend over dgraph-io/badger/v4,
// grounded on the teacher's pkg/storage/badger.go: same
// NewDefaultOptions/iterator-prefix-scan idiom, generalized from
// node/edge-specific key encodings to a flat byte-key interface the
// MVCC layer builds its own key scheme on top of.
package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/nordgraph/internal/storage/kv"
)

// Backend wraps a badger.DB as a kv.Backend.
type Backend struct {
	db *badger.DB
}

// Options mirrors the teacher's BadgerOptions subset relevant to a
// generic KV backend (data dir, in-memory toggle, logger silencing).
type Options struct {
	DataDir  string
	InMemory bool
}

// Open opens (or creates) a Badger-backed store at opts.DataDir, or
// an ephemeral in-memory instance when opts.InMemory is set — mirrors
// the teacher's NewBadgerEngineInMemory escape hatch used heavily in
// its test suite.
func Open(opts Options) (*Backend, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(_ context.Context, key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return kv.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) Set(_ context.Context, key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *Backend) Delete(_ context.Context, key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *Backend) IteratePrefix(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var val []byte
			if err := item.Value(func(v []byte) error {
				val = append([]byte(nil), v...)
				return nil
			}); err != nil {
				return err
			}
			key := append([]byte(nil), item.Key()...)
			if !fn(key, val) {
				break
			}
		}
		return nil
	})
}

func (b *Backend) Close() error { return b.db.Close() }
