package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 50, cfg.PoolCapacity)
	assert.Equal(t, 8192, cfg.WALBufferSize)
	assert.Equal(t, 500*time.Millisecond, cfg.LockPollInterval)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.WALPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HEAPSTORE_POOL_CAPACITY", "7")
	t.Setenv("HEAPSTORE_LOCK_POLL_INTERVAL", "20ms")
	t.Setenv("HEAPSTORE_ENVIRONMENT", "prod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.PoolCapacity)
	assert.Equal(t, 20*time.Millisecond, cfg.LockPollInterval)
	assert.Equal(t, "prod", cfg.Environment)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("HEAPSTORE_POOL_CAPACITY", "0")

	_, err := Load()
	assert.Error(t, err)
}
