package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, ".stateflow", cfg.Storage.Dir)
	assert.Equal(t, "stateflow:", cfg.Storage.Redis.Prefix)
	assert.True(t, cfg.Storage.Redis.PublishEvents)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stateflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
storage:
  driver: file
  dir: /var/lib/stateflow
log:
  level: debug
lock:
  ttl: 10s
`), 0644))

	t.Setenv("STATEFLOW_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dir", "", "")
	flags.String("storage", "", "")
	require.NoError(t, flags.Parse([]string{"--dir", "/tmp/override"}))

	v := New()
	require.NoError(t, BindFlags(v, flags))
	cfg, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, DriverFile, cfg.Storage.Driver, "unset flags must not override the file")
	assert.Equal(t, "/tmp/override", cfg.Storage.Dir)
	assert.Equal(t, "warn", cfg.Log.Level, "environment overrides the file")
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Addr: ":8080", ShutdownTimeout: time.Second},
			Log:     LogConfig{Level: "info"},
			Storage: StorageConfig{Driver: DriverMemory},
			Lock:    LockConfig{TTL: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "unknown storage.driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, "storage.postgres.dsn"},
		{"redis without addr", func(c *Config) { c.Storage.Driver = DriverRedis }, "storage.redis.addr"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"zero ttl", func(c *Config) { c.Lock.TTL = 0 }, "lock.ttl"},
		{"tracing without name", func(c *Config) { c.Tracing.Enabled = true }, "tracing.service_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
