// Package config handles domedit configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level domedit configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Engine  EngineConfig  `yaml:"engine"`
	HTTP    HTTPConfig    `yaml:"http"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`   // attach to an existing devtools URL
	Headless         bool     `yaml:"headless"` // editing is interactive: default headful
	Stealth          bool     `yaml:"stealth"`
	ResourceBlocking []string `yaml:"resource_blocking"` // media | font | image
	UserDataDir      string   `yaml:"user_data_dir"`
}

// EngineConfig controls selection and edit behaviour.
type EngineConfig struct {
	HistoryLimit int           `yaml:"history_limit"` // committed undo depth
	ResyncBudget time.Duration `yaml:"resync_budget"` // overlay reposition coalescing window
	IgnorePrefix string        `yaml:"ignore_prefix"` // selector prefix excluded from picking
}

// HTTPConfig controls the local control API.
type HTTPConfig struct {
	Addr    string        `yaml:"addr"` // empty disables the server
	Timeout time.Duration `yaml:"timeout"`
}

// SinkConfig defines an output backend for edit activity.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | sqlite
	URL  string `yaml:"url"`  // for webhook
	Path string `yaml:"path"` // for sqlite
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a ready-to-use configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Engine.HistoryLimit <= 0 {
		c.Engine.HistoryLimit = 200
	}
	if c.Engine.ResyncBudget <= 0 {
		c.Engine.ResyncBudget = 16 * time.Millisecond
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sink %d: webhook requires url", i)
			}
		case "sqlite":
			if s.Path == "" {
				return fmt.Errorf("config: sink %d: sqlite requires path", i)
			}
		default:
			return fmt.Errorf("config: sink %d: unknown type %q", i, s.Type)
		}
	}
	return nil
}
