package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
redis:
  addr: localhost:6379
store:
  namespace: staging
streak:
  unit_hours: 12
  window_hours: 36
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:6379"}, cfg.Redis.RedisAddrs())
	assert.Equal(t, "staging", cfg.Store.Namespace)
	assert.Equal(t, 5, cfg.Store.MaxCommitAttempts)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 12*time.Hour, cfg.Streak.Window().Unit)
	assert.Equal(t, 36*time.Hour, cfg.Streak.Window().Length)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDRS", "a:6379,b:6379")
	t.Setenv("REDIS_MODE", "sentinel")
	t.Setenv("REDIS_MASTER_NAME", "mymaster")
	t.Setenv("STORE_MAX_COMMIT_ATTEMPTS", "9")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a:6379", "b:6379"}, cfg.Redis.RedisAddrs())
	assert.Equal(t, "sentinel", cfg.Redis.Mode)
	assert.Equal(t, 9, cfg.Store.MaxCommitAttempts)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Redis:  RedisConfig{Addr: "localhost:6379"},
			Store:  StoreConfig{MaxCommitAttempts: 5},
			Streak: StreakConfig{UnitHours: 24, WindowHours: 48},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no redis address", func(c *Config) { c.Redis.Addr = "" }},
		{"cluster mode", func(c *Config) { c.Redis.Mode = "cluster" }},
		{"sentinel without master", func(c *Config) { c.Redis.Mode = "sentinel" }},
		{"zero attempts", func(c *Config) { c.Store.MaxCommitAttempts = 0 }},
		{"window not longer than unit", func(c *Config) { c.Streak.WindowHours = 24 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
