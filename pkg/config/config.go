// Package config loads the optional push-guard configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the user-facing YAML configuration. Every field is optional; the
// zero value is a working configuration.
type Config struct {
	// StateFile overrides the state document location.
	StateFile string `yaml:"state_file,omitempty"`
	// ProtectedBranches extends the well-known heuristic set used when
	// default-branch resolution fails.
	ProtectedBranches []string `yaml:"protected_branches,omitempty"`
	// DefaultRemote is assumed when a push names no remote. Defaults to
	// "origin".
	DefaultRemote string `yaml:"default_remote,omitempty"`
	// NetworkTimeoutSeconds bounds the ls-remote fallback. Defaults to 5.
	NetworkTimeoutSeconds int `yaml:"network_timeout_seconds,omitempty"`
	// DisableNetworkFallback keeps resolution strictly offline.
	DisableNetworkFallback bool `yaml:"disable_network_fallback,omitempty"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, "push-guard", "config.yaml")
}

// Load reads the config at path. A missing file yields the defaults; a file
// that exists but does not parse is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := &Config{}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Remote returns the configured default remote.
func (c *Config) Remote() string {
	if c.DefaultRemote != "" {
		return c.DefaultRemote
	}
	return "origin"
}

// NetworkTimeout returns the resolver's network timeout.
func (c *Config) NetworkTimeout() time.Duration {
	if c.NetworkTimeoutSeconds > 0 {
		return time.Duration(c.NetworkTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}
