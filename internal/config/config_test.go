package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courseflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.Store.LockTTL)
	assert.Equal(t, time.Duration(0), cfg.Store.TTL)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 16, cfg.Display.Buffer)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: ":9090"
log_format: json
store:
  backend: redis
  ttl: 2h
  redis:
    addr: redis:6379
    db: 2
`)
	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "courseflow:session:", cfg.Store.Redis.Prefix, "untouched nested defaults survive")
	assert.Equal(t, 30*time.Second, cfg.Store.LockTTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: file\n")
	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"COURSEFLOW_STORE_BACKEND":  "redis",
		"COURSEFLOW_STORE_REDIS_DB": "5",
		"COURSEFLOW_STORE_LOCK_TTL": "5s",
		"COURSEFLOW_DISPLAY_BUFFER": "4",
		"COURSEFLOW_LOG_LEVEL":      "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Store.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.Store.LockTTL)
	assert.Equal(t, 4, cfg.Display.Buffer)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(map[string]string{"COURSEFLOW_ADDR": ":7000"}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), noEnv)
	assert.Error(t, err)

	_, err = LoadWithEnv(writeConfig(t, "addr: [unterminated"), noEnv)
	assert.Error(t, err)

	_, err = LoadWithEnv(writeConfig(t, "unknown_key: 1\n"), noEnv)
	assert.ErrorContains(t, err, "unknown_key")

	_, err = LoadWithEnv(writeConfig(t, "store:\n  lock_ttl: soon\n"), noEnv)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	cfg.Store.Backend = "postgres"
	cfg.Store.LockTTL = 0
	cfg.Display.Buffer = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "log_level")
	assert.ErrorContains(t, err, `unknown backend "postgres"`)
	assert.ErrorContains(t, err, "store.lock_ttl")
	assert.ErrorContains(t, err, "display.buffer")

	cfg = Default()
	cfg.Store.Backend = BackendRedis
	cfg.Store.Redis.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "store.redis.addr")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "COURSEFLOW_STORE_REDIS_ADDR", EnvName("store.redis.addr"))
	assert.Equal(t, "COURSEFLOW_ADDR", EnvName("addr"))
}
