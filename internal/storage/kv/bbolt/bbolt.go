// Package bbolt implements kv.Backend over go.etcd.io/bbolt: an
// alternate on-disk kv.Backend to badger's, selected by
// StorageConfig.Engine == "bbolt" (internal/config.OpenStorage), using
// a single top-level bucket so the flat byte-key contract of
// kv.Backend is preserved. Grounded on the single-bucket key-value
// usage pattern shown by cuemby-warren's boltdb-backed raft log store.
package bbolt

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/orneryd/nordgraph/internal/storage/kv"
)

var rootBucket = []byte("nordgraph")

// Backend wraps a bbolt.DB as a kv.Backend, using a single top-level
// bucket so the flat byte-key contract of kv.Backend is preserved.
type Backend struct {
	db *bolt.DB
}

// Open opens (or creates) a bbolt-backed store at path.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(_ context.Context, key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(rootBucket).Get(key)
		if v == nil {
			return kv.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) Set(_ context.Context, key, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(key, value)
	})
}

func (b *Backend) Delete(_ context.Context, key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Delete(key)
	})
}

func (b *Backend) IteratePrefix(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(rootBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			if !fn(append([]byte(nil), k...), append([]byte(nil), v...)) {
				break
			}
		}
		return nil
	})
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (b *Backend) Close() error { return b.db.Close() }
