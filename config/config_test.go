package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddkit/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1024, cfg.Cache.MaxSize)
	assert.Empty(t, cfg.Events.NATSURL)
	assert.Equal(t, "domain.events.", cfg.Events.SubjectPrefix)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DDDKIT_LOG_LEVEL", "debug")
	t.Setenv("DDDKIT_STORAGE_DRIVER", "sqlite")
	t.Setenv("DDDKIT_STORAGE_DSN", "issues.db")
	t.Setenv("DDDKIT_STORAGE_MAX_OPEN_CONNS", "8")
	t.Setenv("DDDKIT_CACHE_ENABLED", "false")
	t.Setenv("DDDKIT_CACHE_REDIS_ADDR", "localhost:6379")
	t.Setenv("DDDKIT_CACHE_TTL", "30s")
	t.Setenv("DDDKIT_NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "issues.db", cfg.Storage.DSN)
	assert.Equal(t, 8, cfg.Storage.MaxOpenConns)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DDDKIT_STORAGE_DRIVER", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("DDDKIT_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
