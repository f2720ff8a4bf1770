package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_Defaults(t *testing.T) {
	e, err := ParseEnv()
	require.NoError(t, err)

	assert.Equal(t, ":5000", e.HTTPAddr)
	assert.Equal(t, "cache:6379", e.CacheAddr)
	assert.Equal(t, 5, e.CacheRetries)
	assert.Equal(t, 500*time.Millisecond, e.CacheRetryDelay)
	assert.Equal(t, 10*time.Second, e.ShutdownTimeout)
}

func TestParseEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("CACHE_ADDR", "localhost:7000")
	t.Setenv("CACHE_RETRIES", "3")
	t.Setenv("CACHE_RETRY_DELAY", "50ms")

	e, err := ParseEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", e.HTTPAddr)
	assert.Equal(t, "localhost:7000", e.CacheAddr)
	assert.Equal(t, 3, e.CacheRetries)
	assert.Equal(t, 50*time.Millisecond, e.CacheRetryDelay)
}

func TestParseEnv_RejectsZeroRetries(t *testing.T) {
	t.Setenv("CACHE_RETRIES", "0")

	_, err := ParseEnv()
	assert.Error(t, err)
}
