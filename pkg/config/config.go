// Package config loads engine configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the storage engine. Values come from
// HEAPSTORE_-prefixed environment variables.
type Config struct {
	// Environment selects logger configuration: "dev" or "prod".
	Environment string `envconfig:"ENVIRONMENT" default:"dev"`

	// DataDir is where table files live.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// WALPath is the write-ahead log file.
	WALPath string `envconfig:"WAL_PATH" default:"./data/heapstore.wal"`

	// PoolCapacity is the buffer pool size in pages.
	PoolCapacity int `envconfig:"POOL_CAPACITY" default:"50"`

	// WALBufferSize is the WAL writer buffer in bytes.
	WALBufferSize int `envconfig:"WAL_BUFFER_SIZE" default:"8192"`

	// LockPollInterval is the sleep between lock acquisition attempts.
	LockPollInterval time.Duration `envconfig:"LOCK_POLL_INTERVAL" default:"500ms"`
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment variables still apply.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("heapstore", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if cfg.PoolCapacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", cfg.PoolCapacity)
	}
	if cfg.WALBufferSize <= 0 {
		return nil, fmt.Errorf("WAL buffer size must be positive, got %d", cfg.WALBufferSize)
	}
	return &cfg, nil
}
