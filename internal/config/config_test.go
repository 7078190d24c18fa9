package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddress)
	assert.Equal(t, "default", cfg.WorkspaceID)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, 10, cfg.MaxSubworkflowDepth)
	assert.Equal(t, 10, cfg.FrameItemLimit)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("CONVEYOR_HTTP_ADDRESS", ":9090")
	t.Setenv("CONVEYOR_SESSION_STORE", "redis")
	t.Setenv("CONVEYOR_REDIS_ADDRESS", "redis.internal:6379")
	t.Setenv("CONVEYOR_SESSION_TTL_MINUTES", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddress)
	assert.Equal(t, "redis", cfg.SessionStore)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddress)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
}

func TestLoadConfigRejectsUnknownSessionStore(t *testing.T) {
	t.Setenv("CONVEYOR_SESSION_STORE", "etcd")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown session store")
}

func TestLoadConfigRejectsRedisWithoutAddress(t *testing.T) {
	t.Setenv("CONVEYOR_SESSION_STORE", "redis")
	t.Setenv("CONVEYOR_REDIS_ADDRESS", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis address")
}
