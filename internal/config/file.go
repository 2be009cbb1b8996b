// CLAUDE:SUMMARY Defines webclip config structs and parses YAML configuration files with defaults.
// Package config handles webclip configuration from YAML files or SQLite.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/webclip/pageshot"
)

// Config is the top-level webclip configuration.
type Config struct {
	Browser    BrowserConfig    `yaml:"browser"`
	Capture    pageshot.Config  `yaml:"capture"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Output     OutputConfig     `yaml:"output"`
	Server     ServerConfig     `yaml:"server"`
	Workers    int              `yaml:"workers"`
	Targets    []Target         `yaml:"targets"`
	Sinks      []SinkConfig     `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle and tab preparation.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Stealth          string        `yaml:"stealth"` // plain | headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
	Format           string        `yaml:"format"` // png | jpeg | webp
	Quality          int           `yaml:"quality"`
	HideFixed        *bool         `yaml:"hide_fixed"`
	Settle           time.Duration `yaml:"settle"`
}

// ClassifierConfig controls the HTTP pre-fetch that picks a strategy.
type ClassifierConfig struct {
	TextThreshold int           `yaml:"text_threshold"`
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
}

// OutputConfig controls where and how documents are written.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	ScratchDir string `yaml:"scratch_dir"`
	Textualize bool   `yaml:"textualize"` // OCR each raster into an RTF document
	OCRLang    string `yaml:"ocr_lang"`
	KeepRaster bool   `yaml:"keep_raster"` // also keep the stitched PNGs
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	APIKeyHash   string        `yaml:"api_key_hash"`
	MCPTransport string        `yaml:"mcp_transport"` // "" | http | stdio
	JobsDB       string        `yaml:"jobs_db"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
}

// Target is a URL captured by the `capture` command.
type Target struct {
	ID   string `yaml:"id"`
	URL  string `yaml:"url"`
	Mode string `yaml:"mode"` // auto | capture | text
}

// SinkConfig defines a report backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) validate() error {
	for i, t := range c.Targets {
		if t.URL == "" {
			return fmt.Errorf("config: target %d has no url", i)
		}
		switch t.Mode {
		case "", "auto", "capture", "text":
		default:
			return fmt.Errorf("config: target %d: unknown mode %q", i, t.Mode)
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sink %d: webhook without url", i)
			}
		default:
			return fmt.Errorf("config: sink %d: unknown type %q", i, s.Type)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 25 * time.Second
	}
	if c.Browser.Format == "" {
		c.Browser.Format = "png"
	}
	if c.Browser.HideFixed == nil {
		on := true
		c.Browser.HideFixed = &on
	}
	if c.Browser.Settle <= 0 {
		c.Browser.Settle = 2 * time.Second
	}

	c.Capture = c.Capture.WithDefaults()

	if c.Classifier.TextThreshold <= 0 {
		c.Classifier.TextThreshold = 1000
	}
	if c.Classifier.Timeout <= 0 {
		c.Classifier.Timeout = 20 * time.Second
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./data"
	}
	if c.Output.OCRLang == "" {
		c.Output.OCRLang = "eng"
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.JobTimeout <= 0 {
		c.Server.JobTimeout = 10 * time.Minute
	}

	if c.Workers <= 0 {
		c.Workers = pageshot.DefaultWorkers
	}
	for i := range c.Targets {
		if c.Targets[i].Mode == "" {
			c.Targets[i].Mode = "auto"
		}
	}
}
