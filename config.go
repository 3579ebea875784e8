package domedit

import (
	"github.com/hazyhaar/domedit/internal/config"
)

// Config is the top-level domedit configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// EngineConfig controls selection and edit behaviour.
type EngineConfig = config.EngineConfig

// HTTPConfig controls the local control API.
type HTTPConfig = config.HTTPConfig

// SinkConfig defines an output backend for edit activity.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a ready-to-use configuration.
func DefaultConfig() *Config {
	return config.Default()
}
