// Package config handles nornicgraph configuration via environment
// variables, with an optional YAML file overlay applied first.
//
// Configuration is loaded with LoadFromEnv() (environment only) or
// LoadFromFile(path) (YAML file, then environment variables override any
// key the file also sets) and should be checked with Validate() before use.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Environment Variables:
//
//   - NORNICGRAPH_STORAGE_DATA_DIR="./data"
//   - NORNICGRAPH_STORAGE_BACKEND="memory" or "badger"
//   - NORNICGRAPH_WAL_ENABLED=true
//   - NORNICGRAPH_WAL_SEGMENT_SIZE=1000
//   - NORNICGRAPH_WAL_SYNC_ON_WRITE=false
//   - NORNICGRAPH_WAL_CHECKPOINT_THRESHOLD=1000
//   - NORNICGRAPH_INDEX_DEFAULT_KIND="hash" or "btree"
//
// For the complete list, see the Config struct field documentation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all nornicgraph configuration.
//
// Configuration is organized into logical sections:
//   - Storage: data directory and backend selection
//   - WAL: write-ahead log durability and rotation
//   - Index: default secondary index kind
//   - Algorithm: pass-through options consumed by external collaborators,
//     not read by the core itself
//
// Use LoadFromEnv() or LoadFromFile() to build a Config.
type Config struct {
	Storage   StorageConfig
	WAL       WALConfig
	Index     IndexConfig
	Algorithm AlgorithmConfig
}

// StorageConfig selects and locates the storage.Engine backend.
type StorageConfig struct {
	// DataDir is the directory badger opens when Backend is "badger".
	// Ignored for the in-memory backend.
	DataDir string
	// Backend is "memory" or "badger".
	Backend string
}

// WALConfig controls pkg/wal.Open's durability and rotation behavior.
type WALConfig struct {
	// Enabled gates whether pkg/dbms opens a WAL at all. A database run
	// with WAL disabled has no crash recovery.
	Enabled bool
	// SegmentSize is the entry count at which a segment rotates — the WAL
	// package's CheckpointThreshold.
	SegmentSize int
	// SyncOnWrite requests an fsync after every Append, trading write
	// latency for crash durability (Open Question 2 in the design notes).
	SyncOnWrite bool
	// CheckpointThreshold is an alias for SegmentSize retained because the
	// configuration surface names `wal.segment_size` and
	// `wal.checkpoint_threshold` as distinct options; nornicgraph treats
	// segment rotation and checkpoint frequency as the same knob.
	CheckpointThreshold int
}

// IndexConfig picks the default index.Kind new indices are created with
// when a caller doesn't specify one explicitly.
type IndexConfig struct {
	DefaultKind string // "hash" or "btree"
}

// AlgorithmConfig is an open-ended pass-through bag: nornicgraph's core
// never reads these keys, but external collaborators (graph algorithms,
// embedding pipelines) built against the embedded API may.
type AlgorithmConfig struct {
	Options map[string]string
}

// LoadFromEnv builds a Config from environment variables, applying
// defaults for anything unset.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Storage.DataDir = getEnv("NORNICGRAPH_STORAGE_DATA_DIR", "./data")
	cfg.Storage.Backend = getEnv("NORNICGRAPH_STORAGE_BACKEND", "memory")

	cfg.WAL.Enabled = getEnvBool("NORNICGRAPH_WAL_ENABLED", true)
	cfg.WAL.SegmentSize = getEnvInt("NORNICGRAPH_WAL_SEGMENT_SIZE", 1000)
	cfg.WAL.SyncOnWrite = getEnvBool("NORNICGRAPH_WAL_SYNC_ON_WRITE", false)
	cfg.WAL.CheckpointThreshold = getEnvInt("NORNICGRAPH_WAL_CHECKPOINT_THRESHOLD", cfg.WAL.SegmentSize)

	cfg.Index.DefaultKind = getEnv("NORNICGRAPH_INDEX_DEFAULT_KIND", "hash")

	cfg.Algorithm.Options = getEnvStringMap("NORNICGRAPH_ALGORITHM_OPTIONS")

	return cfg
}

// fileOverlay is the subset of Config exposed to YAML files, using the
// same nesting the struct does so a file only needs to set what it wants
// to override.
type fileOverlay struct {
	Storage struct {
		DataDir string `yaml:"data_dir"`
		Backend string `yaml:"backend"`
	} `yaml:"storage"`
	WAL struct {
		Enabled             *bool `yaml:"enabled"`
		SegmentSize         int   `yaml:"segment_size"`
		SyncOnWrite         *bool `yaml:"sync_on_write"`
		CheckpointThreshold int   `yaml:"checkpoint_threshold"`
	} `yaml:"wal"`
	Index struct {
		DefaultKind string `yaml:"default_kind"`
	} `yaml:"index"`
	Algorithm map[string]string `yaml:"algorithm"`
}

// LoadFromFile reads a YAML file at path as a base configuration, then lets
// every NORNICGRAPH_* environment variable override the value it names —
// file-then-env precedence, matching a Neo4j-style layered configuration.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	cfg.Storage.DataDir = overlay.Storage.DataDir
	cfg.Storage.Backend = overlay.Storage.Backend
	if overlay.WAL.Enabled != nil {
		cfg.WAL.Enabled = *overlay.WAL.Enabled
	} else {
		cfg.WAL.Enabled = true
	}
	cfg.WAL.SegmentSize = overlay.WAL.SegmentSize
	if overlay.WAL.SyncOnWrite != nil {
		cfg.WAL.SyncOnWrite = *overlay.WAL.SyncOnWrite
	}
	cfg.WAL.CheckpointThreshold = overlay.WAL.CheckpointThreshold
	cfg.Index.DefaultKind = overlay.Index.DefaultKind
	cfg.Algorithm.Options = overlay.Algorithm

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values,
// exactly the precedence LoadFromFile documents.
func applyEnvOverrides(cfg *Config) {
	cfg.Storage.DataDir = getEnv("NORNICGRAPH_STORAGE_DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.Backend = getEnv("NORNICGRAPH_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.WAL.Enabled = getEnvBool("NORNICGRAPH_WAL_ENABLED", cfg.WAL.Enabled)
	cfg.WAL.SegmentSize = getEnvInt("NORNICGRAPH_WAL_SEGMENT_SIZE", cfg.WAL.SegmentSize)
	cfg.WAL.SyncOnWrite = getEnvBool("NORNICGRAPH_WAL_SYNC_ON_WRITE", cfg.WAL.SyncOnWrite)
	cfg.WAL.CheckpointThreshold = getEnvInt("NORNICGRAPH_WAL_CHECKPOINT_THRESHOLD", cfg.WAL.CheckpointThreshold)
	cfg.Index.DefaultKind = getEnv("NORNICGRAPH_INDEX_DEFAULT_KIND", cfg.Index.DefaultKind)
	if extra := getEnvStringMap("NORNICGRAPH_ALGORITHM_OPTIONS"); len(extra) > 0 {
		if cfg.Algorithm.Options == nil {
			cfg.Algorithm.Options = map[string]string{}
		}
		for k, v := range extra {
			cfg.Algorithm.Options[k] = v
		}
	}
}

// Validate reports a descriptive error for any setting that would make the
// database unusable. Returns nil if cfg is valid.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("invalid storage backend: %q (want memory or badger)", c.Storage.Backend)
	}
	if c.Storage.Backend == "badger" && c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required for the badger backend")
	}
	if c.WAL.Enabled && c.WAL.SegmentSize <= 0 {
		return fmt.Errorf("invalid wal.segment_size: %d", c.WAL.SegmentSize)
	}
	switch c.Index.DefaultKind {
	case "hash", "btree":
	default:
		return fmt.Errorf("invalid index.default_kind: %q (want hash or btree)", c.Index.DefaultKind)
	}
	return nil
}

// String returns a representation of the Config safe for logging — this
// configuration surface carries no secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Backend: %s, DataDir: %s, WAL: %v, SyncOnWrite: %v, IndexKind: %s}",
		c.Storage.Backend, c.Storage.DataDir, c.WAL.Enabled, c.WAL.SyncOnWrite, c.Index.DefaultKind,
	)
}

// Helper functions for environment variable parsing.

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

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

// getEnvStringMap parses "k1=v1,k2=v2" into a map, used only for
// algorithm.* pass-through since its key set is open-ended and unknown to
// the core.
func getEnvStringMap(key string) map[string]string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(val, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
