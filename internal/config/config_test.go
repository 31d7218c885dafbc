package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Monitor.PollInterval())
	assert.Equal(t, 8, cfg.Monitor.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.Lookback())
	assert.Equal(t, "https://api.hyperliquid.xyz", cfg.Hyperliquid.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Hyperliquid.Timeout)
	assert.Equal(t, uint(3), cfg.Hyperliquid.MaxRetries)
	assert.Equal(t, "./data/db/app.sqlite3", cfg.DB.Path)
	assert.Empty(t, cfg.Telegram.Token)
}

func TestNewViper(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultConcurrency, cfg.Monitor.Concurrency)

	_, err = NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	v, err = NewViper(filepath.Join("..", "..", "config", "config.example.yaml"))
	require.NoError(t, err)
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":9108", cfg.Metrics.Addr)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
monitor:
  poll_interval: 30
  concurrency: 4
telegram:
  token: "123:abc"
  admins: [11, 22]
db:
  path: /tmp/watcher.sqlite3
`), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Monitor.PollInterval())
	assert.Equal(t, 4, cfg.Monitor.Concurrency)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.True(t, cfg.Telegram.IsAdmin(22))
	assert.False(t, cfg.Telegram.IsAdmin(33))
	assert.Equal(t, "/tmp/watcher.sqlite3", cfg.DB.Path)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("WATCHER_MONITOR_POLL_INTERVAL", "60")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Monitor.PollInterval())
}

func TestMonitorConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     MonitorConfig
		wantErr bool
	}{
		{name: "ok", cfg: MonitorConfig{PollIntervalSeconds: 10, Concurrency: 8, LookbackMs: 1000}},
		{name: "lower bound", cfg: MonitorConfig{PollIntervalSeconds: 2, Concurrency: 1, LookbackMs: 1}},
		{name: "upper bound", cfg: MonitorConfig{PollIntervalSeconds: 3600, Concurrency: 64, LookbackMs: 1}},
		{name: "interval too small", cfg: MonitorConfig{PollIntervalSeconds: 1, Concurrency: 8, LookbackMs: 1000}, wantErr: true},
		{name: "interval too large", cfg: MonitorConfig{PollIntervalSeconds: 3601, Concurrency: 8, LookbackMs: 1000}, wantErr: true},
		{name: "no workers", cfg: MonitorConfig{PollIntervalSeconds: 10, Concurrency: 0, LookbackMs: 1000}, wantErr: true},
		{name: "no lookback", cfg: MonitorConfig{PollIntervalSeconds: 10, Concurrency: 8}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
