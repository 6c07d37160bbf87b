package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ModeSim, cfg.Mode)
	assert.Equal(t, ScopeOwned, cfg.Scope)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 200*time.Millisecond, cfg.Sim.MinLatency)
	assert.Equal(t, 400*time.Millisecond, cfg.Sim.MaxLatency)
	assert.Equal(t, 8*time.Second, cfg.Sim.EventInterval)
	assert.True(t, cfg.Sim.AutoReply)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, "9180", cfg.HTTP.Port)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mode: remote
scope: all
log:
  level: debug
  format: json
api:
  base_url: https://api.campuswatch.example
ws:
  url: wss://api.campuswatch.example/push
  reconnect_interval: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeRemote, cfg.Mode)
	assert.Equal(t, ScopeAll, cfg.Scope)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://api.campuswatch.example", cfg.API.BaseURL)
	assert.Equal(t, "wss://api.campuswatch.example/push", cfg.WS.URL)
	assert.Equal(t, 5*time.Second, cfg.WS.ReconnectInterval)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CAMPUSWATCH_SCOPE", "all")
	t.Setenv("CAMPUSWATCH_LOG__FORMAT", "json")
	t.Setenv("CAMPUSWATCH_SIM__MIN_LATENCY", "50ms")
	t.Setenv("CAMPUSWATCH_SIM__MAX_LATENCY", "100ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ScopeAll, cfg.Scope)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 50*time.Millisecond, cfg.Sim.MinLatency)
	assert.Equal(t, 100*time.Millisecond, cfg.Sim.MaxLatency)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "hybrid" },
			wantErr: "unknown mode",
		},
		{
			name:    "remote without base url",
			mutate:  func(c *Config) { c.Mode = ModeRemote; c.WS.URL = "wss://x/push" },
			wantErr: "api.base_url",
		},
		{
			name:    "remote without ws url",
			mutate:  func(c *Config) { c.Mode = ModeRemote; c.API.BaseURL = "https://x" },
			wantErr: "ws.url",
		},
		{
			name:    "unknown scope",
			mutate:  func(c *Config) { c.Scope = "everything" },
			wantErr: "unknown scope",
		},
		{
			name:    "inverted latency bounds",
			mutate:  func(c *Config) { c.Sim.MinLatency = time.Second; c.Sim.MaxLatency = time.Millisecond },
			wantErr: "min_latency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
