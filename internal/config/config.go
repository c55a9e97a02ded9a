// Package config loads the optional checknfs config file. Everything has
// a sane default, the file only exists so site-wide settings (ssh port,
// key, history location) don't have to be repeated in every nagios
// command definition.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port       int    `yaml:"port"`
	TimeoutSec int    `yaml:"timeout_sec"`
	KeyFile    string `yaml:"key_file"`
	HistoryDir string `yaml:"history_dir"`
}

// Load reads the config at `path`, or returns a default config if path is
// empty.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.TimeoutSec == 0 {
		c.TimeoutSec = 30
	}
	// an empty HistoryDir means the system temp dir, resolved by the
	// history store itself
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.TimeoutSec < 0 {
		return fmt.Errorf("timeout_sec cannot be negative")
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
