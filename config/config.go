// Package config loads the tool's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the tunable settings. Everything has a usable default; a
// missing config file is not an error.
type Config struct {
	// TrustRoot is the directory holding per-package trust anchors.
	// Empty means ~/.gpg-download-verifier.
	TrustRoot string `yaml:"trust_root"`

	// Keyserver is the single fixed keyserver used for bootstrap key
	// retrieval.
	Keyserver string `yaml:"keyserver"`

	// KeyserverCert is a path to a PEM certificate the keyserver's TLS
	// chain is validated against instead of the system trust store.
	// Empty disables pinning.
	KeyserverCert string `yaml:"keyserver_cert"`

	// TimeoutSeconds bounds each network operation.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// LegacySubstringMatch restores the historical substring containment
	// manifest match instead of the exact per-token comparison.
	LegacySubstringMatch bool `yaml:"legacy_substring_match"`

	// PinOnFailure keeps a package bootstrapped even when its first
	// verification fails. Disabling it rolls the trust store back on a
	// failed bootstrap so the next attempt may retrieve keys again.
	PinOnFailure bool `yaml:"pin_on_failure"`

	// Interactive asks for confirmation before trusting a new package
	// when a terminal is available.
	Interactive bool `yaml:"interactive"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Keyserver:      "https://keyserver.ubuntu.com",
		TimeoutSeconds: 30,
		PinOnFailure:   true,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gpg-download-verifier", "config.yaml")
}

// Load reads the config at path, layered over the defaults. A missing file
// yields the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Timeout returns the network timeout as a duration.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
