package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_MODE", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreMode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.False(t, cfg.EventsEnabled())
}

func TestFromEnvParsesLists(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RETRY_BACKOFF", "100ms,2s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("APP_DEBUG", "yes")
	t.Setenv("HOLIDAZE_URL", "https://api.example.test/holidaze/")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 2 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "https://api.example.test/holidaze", cfg.HolidazeURL)
	assert.True(t, cfg.EventsEnabled())
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "duration", key: "IDEMP_TTL", val: "forever"},
		{name: "bool", key: "APP_DEBUG", val: "maybe"},
		{name: "int", key: "REDIS_DB", val: "two"},
		{name: "backoff", key: "RETRY_BACKOFF", val: "1s,soon"},
		{name: "mode", key: "STORE_MODE", val: "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestValidatePerStoreMode(t *testing.T) {
	assert.Error(t, Config{StoreMode: StoreMongo}.Validate())
	assert.NoError(t, Config{StoreMode: StoreMongo, MongoURI: "mongodb://localhost"}.Validate())
	assert.Error(t, Config{StoreMode: StoreHolidaze, HolidazeURL: "https://x"}.Validate())
	assert.NoError(t, Config{StoreMode: StoreHolidaze, HolidazeURL: "https://x", HolidazeAPIKey: "k"}.Validate())
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9999\nMONGO_DB=fromfile\n"), 0o600))
	t.Setenv("MONGO_DB", "fromenv")
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "fromenv", cfg.MongoDB)
}
