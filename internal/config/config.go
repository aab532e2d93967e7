// Package config loads nigori CLI configuration from a YAML file, the same
// way postalsys-Muti-Metroo/internal/config loads its agent configuration:
// unmarshal, then fill in defaults for anything the file left zero.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the client-facing configuration the CLI reads before building a
// nigori.Client. It is deliberately thin: server transport, persistence,
// and deployment are external collaborators this module never owns.
type Config struct {
	Server          string        `yaml:"server"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	ServerName      string        `yaml:"server_name"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	FreshnessWindow time.Duration `yaml:"freshness_window"`
}

// defaults applied after unmarshal for any field the file left at its zero
// value.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.FreshnessWindow == 0 {
		c.FreshnessWindow = 5 * time.Minute
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nigori: config: reading %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("nigori: config: parsing %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

// Default returns a Config with every field at its default value, for
// callers that invoke the CLI without a config file.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}
