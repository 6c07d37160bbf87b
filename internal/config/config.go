// Package config loads application configuration from an optional YAML
// file and CAMPUSWATCH_* environment variables, with sane defaults for
// local simulated mode.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Modes the incident backend can run in.
const (
	ModeSim    = "sim"
	ModeRemote = "remote"
)

// Scope policies for the sync controller.
const (
	ScopeOwned = "owned"
	ScopeAll   = "all"
)

// Config is the application configuration.
type Config struct {
	Mode  string        `koanf:"mode"`
	Scope string        `koanf:"scope"`
	Log   LogConfig     `koanf:"log"`
	API   APIConfig     `koanf:"api"`
	WS    WSConfig      `koanf:"ws"`
	Sim   SimConfig     `koanf:"sim"`
	Auth  AuthConfig    `koanf:"auth"`
	HTTP  HTTPConfig    `koanf:"http"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// APIConfig contains remote backend configuration.
type APIConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	Burst     int           `koanf:"burst"`
}

// WSConfig contains websocket channel configuration.
type WSConfig struct {
	URL                  string        `koanf:"url"`
	ReconnectInterval    time.Duration `koanf:"reconnect_interval"`
	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts"`
}

// SimConfig contains simulated backend and channel configuration.
type SimConfig struct {
	MinLatency       time.Duration `koanf:"min_latency"`
	MaxLatency       time.Duration `koanf:"max_latency"`
	EventInterval    time.Duration `koanf:"event_interval"`
	EventJitter      time.Duration `koanf:"event_jitter"`
	WatchdogInterval time.Duration `koanf:"watchdog_interval"`
	AutoReply        bool          `koanf:"auto_reply"`
	DemoPassword     string        `koanf:"demo_password"`
}

// AuthConfig contains session configuration.
type AuthConfig struct {
	StatePath string `koanf:"state_path"`
	Email     string `koanf:"email"`
	Password  string `koanf:"password"`
}

// HTTPConfig contains the local metrics/health listener configuration.
type HTTPConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
}

// Default returns the configuration used when nothing is overridden:
// fully simulated, owner-scoped, text logs.
func Default() Config {
	return Config{
		Mode:  ModeSim,
		Scope: ScopeOwned,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			Timeout:   10 * time.Second,
			RateLimit: 10,
			Burst:     20,
		},
		WS: WSConfig{
			ReconnectInterval: 3 * time.Second,
		},
		Sim: SimConfig{
			MinLatency:       200 * time.Millisecond,
			MaxLatency:       400 * time.Millisecond,
			EventInterval:    8 * time.Second,
			EventJitter:      7 * time.Second,
			WatchdogInterval: 30 * time.Second,
			AutoReply:        true,
			DemoPassword:     "utec2024",
		},
		Auth: AuthConfig{
			StatePath: defaultStatePath(),
		},
		HTTP: HTTPConfig{
			Host: "127.0.0.1",
			Port: "9180",
		},
	}
}

// Load reads configuration from the given YAML file (optional, may be
// empty) and the environment, layered over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider("CAMPUSWATCH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "CAMPUSWATCH_")), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSim:
	case ModeRemote:
		if c.API.BaseURL == "" {
			return errors.New("remote mode requires api.base_url")
		}
		if c.WS.URL == "" {
			return errors.New("remote mode requires ws.url")
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	switch c.Scope {
	case ScopeOwned, ScopeAll:
	default:
		return fmt.Errorf("unknown scope %q", c.Scope)
	}

	if c.Sim.MinLatency > c.Sim.MaxLatency {
		return errors.New("sim.min_latency must not exceed sim.max_latency")
	}
	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.campuswatch/session.json"
}
