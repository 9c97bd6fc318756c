// Package config loads the mirror configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL         = "https://discord.com/api"
	DefaultAPIVersion      = 9
	DefaultTokenType       = "Bot"
	DefaultRequestsPerSec  = 50
	DefaultRequestTimeout  = 10 * time.Second
	DefaultUserAgent       = "go-ash-mirror (https://github.com/Borislavv/go-ash-mirror)"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultTelemetryEach   = 5 * time.Second
	DefaultPurgeCallsPerS  = 1
)

// Default returns a configuration suitable for tests and local runs.
func Default() *Mirror {
	cfg := &Mirror{}
	cfg.AdjustConfig()
	return cfg
}

// AdjustConfig fills derived and defaulted fields.
func (cfg *Mirror) AdjustConfig() {
	if cfg.Rest.BaseURL == "" {
		cfg.Rest.BaseURL = DefaultBaseURL
	}
	if cfg.Rest.APIVersion <= 0 {
		cfg.Rest.APIVersion = DefaultAPIVersion
	}
	if cfg.Rest.TokenType == "" {
		cfg.Rest.TokenType = DefaultTokenType
	}
	if cfg.Rest.RequestsPerSec <= 0 {
		cfg.Rest.RequestsPerSec = DefaultRequestsPerSec
	}
	if cfg.Rest.Timeout <= 0 {
		cfg.Rest.Timeout = DefaultRequestTimeout
	}
	if cfg.Rest.UserAgent == "" {
		cfg.Rest.UserAgent = DefaultUserAgent
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = DefaultTelemetryEach
	}
	if cfg.Purger.Enabled() && cfg.Purger.CallsPerSec <= 0 {
		cfg.Purger.CallsPerSec = DefaultPurgeCallsPerS
	}
}

// LoadConfig reads YAML from path, overlays the environment and adjusts defaults.
func LoadConfig(path string) (*Mirror, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := &Mirror{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	if err = ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.AdjustConfig()

	return cfg, nil
}

// ParseEnv overlays environment variables onto cfg.
func ParseEnv(cfg *Mirror) error {
	if err := env.Parse(&cfg.Rest); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
