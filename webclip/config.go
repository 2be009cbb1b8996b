package webclip

import (
	"github.com/hazyhaar/webclip/internal/config"
)

// Config is the top-level webclip configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle and tab preparation.
type BrowserConfig = config.BrowserConfig

// OutputConfig controls where documents are written.
type OutputConfig = config.OutputConfig

// Target is a URL captured by the capture command.
type Target = config.Target

// SinkConfig defines a report backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	return config.Default()
}
