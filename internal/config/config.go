// Package config handles environment-variable driven configuration,
// grounded on the teacher's pkg/config/config.go (LoadFromEnv,
// getEnv* helpers, Validate) but narrowed to the ambient concerns of
// an embeddable graph storage/query engine: which storage backend and
// WAL durability policy to run with, the default transaction
// isolation level, worker-pool sizing for the executor's parallel
// operators, and logging.
//
// NornicDB's own environment namespace (NEO4J_*, NORNICDB_MEMORY_*,
// NORNICDB_COMPLIANCE_*) does not apply here; this package uses its
// own single NORDGRAPH_-prefixed namespace instead.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/nordgraph/internal/storage"
)

// Config holds all nordgraph configuration loaded from environment
// variables or a YAML file. Use LoadFromEnv or LoadConfig to build
// one, then Validate it before wiring up a storage.Engine.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Workers WorkerConfig  `yaml:"workers"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects and tunes the storage.Engine backing a space.
type StorageConfig struct {
	// Engine names the kv.Backend to open: "memory" (no durable
	// backend), "badger", or "bbolt".
	Engine string `yaml:"engine"`
	// DataDir is where the chosen backend persists data (ignored for
	// "memory").
	DataDir string `yaml:"data_dir"`
	// WALDir is where write-ahead log segments are rotated. Empty
	// disables the WAL and recovery entirely (in-memory-only engine).
	WALDir string `yaml:"wal_dir"`
	// WALMaxSegmentBytes caps a single WAL segment before rotation.
	WALMaxSegmentBytes int64 `yaml:"wal_max_segment_bytes"`
	// WALSyncMode is storage.SyncAlways or storage.SyncNever.
	WALSyncMode storage.SyncMode `yaml:"wal_sync_mode"`
	// DefaultIsolation is the isolation level Begin uses when a caller
	// doesn't pick one explicitly.
	DefaultIsolation storage.Isolation `yaml:"default_isolation"`
}

// WorkerConfig sizes the executor's parallel operators (exec.ParallelConfig).
type WorkerConfig struct {
	// Parallelism is the number of worker goroutines exec.ParallelMap
	// shards across. exec.Join (hash join and cartesian product) does
	// not shard; it runs on the calling goroutine.
	Parallelism int `yaml:"parallelism"`
	// MinRowsPerThread is the row-count threshold below which an
	// operator runs single-threaded rather than paying sharding
	// overhead.
	MinRowsPerThread int `yaml:"min_rows_per_thread"`
	// EnableWorkStealing is carried into exec.ParallelConfig;
	// exec.ParallelMap does not read it and never moves work between
	// workers.
	EnableWorkStealing bool `yaml:"work_stealing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// LoadFromEnv loads configuration from environment variables, using
// sensible defaults so LoadFromEnv() can be called without any
// environment variables set.
//
// Environment variables:
//
//	NORDGRAPH_STORAGE_ENGINE=memory|badger|bbolt   (default memory)
//	NORDGRAPH_STORAGE_DATA_DIR=./data
//	NORDGRAPH_STORAGE_WAL_DIR=               (default "": no WAL)
//	NORDGRAPH_STORAGE_WAL_MAX_SEGMENT_BYTES=67108864
//	NORDGRAPH_STORAGE_WAL_SYNC_MODE=always|never
//	NORDGRAPH_STORAGE_DEFAULT_ISOLATION=read_uncommitted|read_committed|repeatable_read|snapshot|serializable
//	NORDGRAPH_WORKERS_PARALLELISM=4
//	NORDGRAPH_WORKERS_MIN_ROWS_PER_THREAD=1000
//	NORDGRAPH_WORKERS_WORK_STEALING=true
//	NORDGRAPH_LOG_LEVEL=info
//	NORDGRAPH_LOG_FORMAT=json
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Storage.Engine = getEnv("NORDGRAPH_STORAGE_ENGINE", "memory")
	cfg.Storage.DataDir = getEnv("NORDGRAPH_STORAGE_DATA_DIR", "./data")
	cfg.Storage.WALDir = getEnv("NORDGRAPH_STORAGE_WAL_DIR", "")
	cfg.Storage.WALMaxSegmentBytes = getEnvInt64("NORDGRAPH_STORAGE_WAL_MAX_SEGMENT_BYTES", 64<<20)
	cfg.Storage.WALSyncMode = storage.SyncMode(getEnv("NORDGRAPH_STORAGE_WAL_SYNC_MODE", string(storage.SyncAlways)))
	cfg.Storage.DefaultIsolation = parseIsolation(getEnv("NORDGRAPH_STORAGE_DEFAULT_ISOLATION", "snapshot"))

	cfg.Workers.Parallelism = getEnvInt("NORDGRAPH_WORKERS_PARALLELISM", 4)
	cfg.Workers.MinRowsPerThread = getEnvInt("NORDGRAPH_WORKERS_MIN_ROWS_PER_THREAD", 1000)
	cfg.Workers.EnableWorkStealing = getEnvBool("NORDGRAPH_WORKERS_WORK_STEALING", true)

	cfg.Logging.Level = getEnv("NORDGRAPH_LOG_LEVEL", "info")
	cfg.Logging.Format = getEnv("NORDGRAPH_LOG_FORMAT", "json")

	return cfg
}

// LoadConfig loads configuration from a YAML file, applying the same
// defaults LoadFromEnv uses for any field the file leaves zero-valued.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault loads config from a YAML file, or returns
// defaults if the file does not exist or fails to parse.
func LoadConfigOrDefault(path string) *Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		return defaultConfig()
	}
	return cfg
}

// LoadFromEnvOrFile loads a YAML file (or defaults, if filePath is
// empty or unreadable) and then lets any explicitly-set
// NORDGRAPH_-prefixed environment variable override its fields.
func LoadFromEnvOrFile(filePath string) *Config {
	cfg := defaultConfig()
	if filePath != "" {
		cfg = LoadConfigOrDefault(filePath)
	}

	if v := os.Getenv("NORDGRAPH_STORAGE_ENGINE"); v != "" {
		cfg.Storage.Engine = v
	}
	if v := os.Getenv("NORDGRAPH_STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("NORDGRAPH_STORAGE_WAL_DIR"); v != "" {
		cfg.Storage.WALDir = v
	}
	if v := os.Getenv("NORDGRAPH_STORAGE_WAL_MAX_SEGMENT_BYTES"); v != "" {
		cfg.Storage.WALMaxSegmentBytes = getEnvInt64("NORDGRAPH_STORAGE_WAL_MAX_SEGMENT_BYTES", cfg.Storage.WALMaxSegmentBytes)
	}
	if v := os.Getenv("NORDGRAPH_STORAGE_WAL_SYNC_MODE"); v != "" {
		cfg.Storage.WALSyncMode = storage.SyncMode(v)
	}
	if v := os.Getenv("NORDGRAPH_STORAGE_DEFAULT_ISOLATION"); v != "" {
		cfg.Storage.DefaultIsolation = parseIsolation(v)
	}
	if v := os.Getenv("NORDGRAPH_WORKERS_PARALLELISM"); v != "" {
		cfg.Workers.Parallelism = getEnvInt("NORDGRAPH_WORKERS_PARALLELISM", cfg.Workers.Parallelism)
	}
	if v := os.Getenv("NORDGRAPH_WORKERS_MIN_ROWS_PER_THREAD"); v != "" {
		cfg.Workers.MinRowsPerThread = getEnvInt("NORDGRAPH_WORKERS_MIN_ROWS_PER_THREAD", cfg.Workers.MinRowsPerThread)
	}
	if v := os.Getenv("NORDGRAPH_WORKERS_WORK_STEALING"); v != "" {
		cfg.Workers.EnableWorkStealing = getEnvBool("NORDGRAPH_WORKERS_WORK_STEALING", cfg.Workers.EnableWorkStealing)
	}
	if v := os.Getenv("NORDGRAPH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NORDGRAPH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Engine:             "memory",
			DataDir:            "./data",
			WALMaxSegmentBytes: 64 << 20,
			WALSyncMode:        storage.SyncAlways,
			DefaultIsolation:   storage.Snapshot,
		},
		Workers: WorkerConfig{
			Parallelism:        4,
			MinRowsPerThread:   1000,
			EnableWorkStealing: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for logical errors before it is
// used to construct a storage.Engine.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case "memory", "badger", "bbolt":
	default:
		return fmt.Errorf("unknown storage engine %q: must be memory, badger, or bbolt", c.Storage.Engine)
	}
	if (c.Storage.Engine == "badger" || c.Storage.Engine == "bbolt") && c.Storage.DataDir == "" {
		return fmt.Errorf("storage engine %s requires a data directory", c.Storage.Engine)
	}
	switch c.Storage.WALSyncMode {
	case storage.SyncAlways, storage.SyncNever:
	default:
		return fmt.Errorf("unknown wal sync mode %q: must be always or never", c.Storage.WALSyncMode)
	}
	if c.Storage.WALMaxSegmentBytes <= 0 {
		return fmt.Errorf("invalid wal max segment bytes: %d", c.Storage.WALMaxSegmentBytes)
	}
	if c.Workers.Parallelism <= 0 {
		return fmt.Errorf("invalid worker parallelism: %d", c.Workers.Parallelism)
	}
	if c.Workers.MinRowsPerThread < 0 {
		return fmt.Errorf("invalid min rows per thread: %d", c.Workers.MinRowsPerThread)
	}
	return nil
}

// String returns a string representation of the Config safe for
// logging (there are no secrets in this config to redact).
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Engine: %s, DataDir: %s, WAL: %s (sync=%s), Isolation: %v, Parallelism: %d}",
		c.Storage.Engine, c.Storage.DataDir, c.Storage.WALDir, c.Storage.WALSyncMode,
		c.Storage.DefaultIsolation, c.Workers.Parallelism,
	)
}

func parseIsolation(s string) storage.Isolation {
	switch strings.ToLower(s) {
	case "read_uncommitted":
		return storage.ReadUncommitted
	case "read_committed":
		return storage.ReadCommitted
	case "repeatable_read":
		return storage.RepeatableRead
	case "serializable":
		return storage.Serializable
	default:
		return storage.Snapshot
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
