package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/config"
	"github.com/goliatone/go-settings/pkg/state"
)

func newManager(t *testing.T, env map[string]string) *config.Manager {
	t.Helper()
	for key, value := range env {
		t.Setenv(key, value)
	}
	cfg, err := config.NewManager()
	require.NoError(t, err)
	return cfg
}

func roundTrip(t *testing.T, backend *Backend) {
	t.Helper()
	ctx := context.Background()
	ref := state.Ref{Group: "demo"}

	_, err := backend.Store.Save(ctx, ref, settings.Values{"general_title": "Hello"}, state.Meta{})
	require.NoError(t, err)
	values, meta, ok, err := backend.Store.Load(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello", values["general_title"])
	assert.NotEmpty(t, meta.ETag)
	require.NoError(t, backend.Store.Delete(ctx, ref))
}

func TestMemoryBackend(t *testing.T) {
	backend, err := NewBackend(newManager(t, map[string]string{"SETTINGS_STORE": "memory"}))
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, config.StoreMemory, backend.Name)
	roundTrip(t, backend)
}

func TestGormBackend(t *testing.T) {
	backend, err := NewBackend(newManager(t, map[string]string{
		"SETTINGS_STORE": "gorm",
		"SETTINGS_DSN":   "file::memory:?cache=shared",
	}))
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, config.StoreGorm, backend.Name)
	roundTrip(t, backend)
}

func TestRedisBackend(t *testing.T) {
	url := os.Getenv("SETTINGS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SETTINGS_TEST_REDIS_URL not set")
	}
	backend, err := NewBackend(newManager(t, map[string]string{
		"SETTINGS_STORE":        "redis",
		"SETTINGS_REDIS_URL":    url,
		"SETTINGS_REDIS_PREFIX": "settings-test:",
	}))
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, config.StoreRedis, backend.Name)
	roundTrip(t, backend)
}

func TestRedisBackendRejectsBadURL(t *testing.T) {
	_, err := NewBackend(newManager(t, map[string]string{
		"SETTINGS_STORE":     "redis",
		"SETTINGS_REDIS_URL": "not-a-url",
	}))
	assert.Error(t, err)
}

func TestCloseNil(t *testing.T) {
	var backend *Backend
	assert.NoError(t, backend.Close())
}
