package config_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/config"
	"github.com/orneryd/nordgraph/internal/storage"
)

func TestOpenStorageMemoryEngine(t *testing.T) {
	cfg := config.LoadFromEnv()
	cat := catalog.New(zerolog.Nop())

	eng, err := config.OpenStorage(cfg, cat, zerolog.Nop())
	require.NoError(t, err)
	defer eng.Close()

	tx := eng.Begin(storage.Snapshot)
	require.NoError(t, tx.Commit())
}

func TestOpenStorageBadgerEngine(t *testing.T) {
	cfg := config.LoadFromEnv()
	cfg.Storage.Engine = "badger"
	cfg.Storage.DataDir = t.TempDir()
	cat := catalog.New(zerolog.Nop())

	eng, err := config.OpenStorage(cfg, cat, zerolog.Nop())
	require.NoError(t, err)
	defer eng.Close()

	tx := eng.Begin(storage.Snapshot)
	require.NoError(t, tx.Commit())
}

func TestOpenStorageBboltEngine(t *testing.T) {
	cfg := config.LoadFromEnv()
	cfg.Storage.Engine = "bbolt"
	cfg.Storage.DataDir = t.TempDir()
	cat := catalog.New(zerolog.Nop())

	eng, err := config.OpenStorage(cfg, cat, zerolog.Nop())
	require.NoError(t, err)
	defer eng.Close()

	tx := eng.Begin(storage.Snapshot)
	require.NoError(t, tx.Commit())
}

func TestOpenStorageRejectsInvalidConfig(t *testing.T) {
	cfg := config.LoadFromEnv()
	cfg.Storage.Engine = "unknown"
	cat := catalog.New(zerolog.Nop())

	_, err := config.OpenStorage(cfg, cat, zerolog.Nop())
	require.Error(t, err)
}

func TestConfigParallelConfigMapping(t *testing.T) {
	cfg := config.LoadFromEnv()
	pc := cfg.ParallelConfig()
	require.Equal(t, cfg.Workers.Parallelism, pc.Parallelism)
	require.Equal(t, cfg.Workers.MinRowsPerThread, pc.MinRowsPerThread)
	require.Equal(t, cfg.Workers.EnableWorkStealing, pc.EnableWorkStealing)
}
