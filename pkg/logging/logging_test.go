package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"dev", "prod", ""} {
		log, err := New(env)
		require.NoError(t, err, "env %q", env)
		assert.NotNil(t, log)
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	// Must be safe to use without any configuration.
	log.Infow("ignored", "k", "v")
	assert.NoError(t, log.Sync())
}
