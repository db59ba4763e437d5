// Package config handles configuration loading and validation for margin.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LogConfig controls log output.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config holds the application configuration.
type Config struct {
	// Root is the features directory holding one subdirectory per feature.
	Root string    `yaml:"root"`
	Log  LogConfig `yaml:"log"`
	// Ignore lists glob patterns for directory names to skip when
	// scanning the features root.
	Ignore []string `yaml:"ignore"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Ignore: []string{
			".*",
			"node_modules",
		},
	}
}

// Load reads configuration from the given path and applies the root
// override. If the path is empty or doesn't exist, defaults are returned.
func Load(configPath, root string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	// CLI flag beats the file value.
	if root != "" {
		cfg.Root = root
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Ignore == nil {
		c.Ignore = defaults.Ignore
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root directory is required")
	}
	return nil
}
