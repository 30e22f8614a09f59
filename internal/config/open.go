package config

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/exec"
	"github.com/orneryd/nordgraph/internal/storage"
	"github.com/orneryd/nordgraph/internal/storage/kv/badger"
	"github.com/orneryd/nordgraph/internal/storage/kv/bbolt"
)

// OpenStorage builds a storage.Engine per StorageConfig: a pure
// in-memory engine for "memory", or one backed by a durable
// kv.Backend for "badger" or "bbolt" (§4.A's MVCC store always keeps
// its own version chain in memory; the backend is a durable mirror of
// latest committed state that every commit writes through and that a
// WAL-less engine recovers from at startup — see storage.Tx.Commit and
// storage.loadFromBackend — mirroring the teacher's
// BadgerEngine/MemoryEngine split in pkg/storage).
func OpenStorage(cfg *Config, cat *catalog.Catalog, log zerolog.Logger) (*storage.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []storage.Option{
		storage.WithDefaultIsolation(cfg.Storage.DefaultIsolation),
		storage.WithWALSyncMode(cfg.Storage.WALSyncMode),
	}

	switch cfg.Storage.Engine {
	case "badger":
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, err
		}
		backend, err := badger.Open(badger.Options{DataDir: cfg.Storage.DataDir})
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithBackend(backend))
	case "bbolt":
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, err
		}
		backend, err := bbolt.Open(filepath.Join(cfg.Storage.DataDir, "nordgraph.bbolt"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithBackend(backend))
	}

	return storage.NewEngine(cat, cfg.Storage.WALDir, log, opts...)
}

// ParallelConfig maps WorkerConfig onto the executor's own parallel
// operator knobs (§4.C).
func (c *Config) ParallelConfig() exec.ParallelConfig {
	return exec.ParallelConfig{
		Parallelism:        c.Workers.Parallelism,
		MinRowsPerThread:   c.Workers.MinRowsPerThread,
		EnableWorkStealing: c.Workers.EnableWorkStealing,
	}
}
