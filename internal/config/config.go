// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all flightdeck configuration.
type Config struct {
	Server Server `yaml:"server"`
	UI     UI     `yaml:"ui"`
	Log    Log    `yaml:"log"`
	Watch  Watch  `yaml:"watch"`
}

// Server selects which CI server to talk to.
type Server struct {
	// URL is the server address, used when no target is named.
	URL string `yaml:"url"`
	// Target names an entry in targets.yml and wins over URL when set.
	Target string `yaml:"target"`
}

// UI holds dashboard presentation settings.
type UI struct {
	SidebarOpen bool `yaml:"sidebar_open"` // Open the team sidebar at startup
}

// Log holds structured-log sink settings. The TUI owns the terminal, so
// logs go to a file; an empty path discards them.
type Log struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
}

// Watch holds headless watch-mode settings.
type Watch struct {
	Interval time.Duration `yaml:"interval"`  // Poll cadence
	EventLog string        `yaml:"event_log"` // JSONL transition log path; empty disables
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Log: Log{
			Level: "info",
		},
		Watch: Watch{
			Interval: 5 * time.Second,
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil {
			return fmt.Errorf("config: server.url %q: %w", c.Server.URL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("config: server.url %q: scheme must be http or https", c.Server.URL)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("config: watch.interval must be positive, got %v", c.Watch.Interval)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: FLIGHTDECK_URL, FLIGHTDECK_TARGET,
// FLIGHTDECK_LOG_FILE, FLIGHTDECK_LOG_LEVEL, FLIGHTDECK_WATCH_INTERVAL.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("FLIGHTDECK_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("FLIGHTDECK_TARGET"); v != "" {
		c.Server.Target = v
	}
	if v := os.Getenv("FLIGHTDECK_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("FLIGHTDECK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FLIGHTDECK_WATCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid FLIGHTDECK_WATCH_INTERVAL %q: %w", v, err)
		}
		c.Watch.Interval = d
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Server *rawServer `yaml:"server"`
	UI     *rawUI     `yaml:"ui"`
	Log    *rawLog    `yaml:"log"`
	Watch  *rawWatch  `yaml:"watch"`
}

type rawServer struct {
	URL    *string `yaml:"url"`
	Target *string `yaml:"target"`
}

type rawUI struct {
	SidebarOpen *bool `yaml:"sidebar_open"`
}

type rawLog struct {
	File  *string `yaml:"file"`
	Level *string `yaml:"level"`
}

type rawWatch struct {
	Interval *time.Duration `yaml:"interval"`
	EventLog *string        `yaml:"event_log"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.Server != nil {
		if layer.Server.URL != nil {
			c.Server.URL = *layer.Server.URL
		}
		if layer.Server.Target != nil {
			c.Server.Target = *layer.Server.Target
		}
	}
	if layer.UI != nil {
		if layer.UI.SidebarOpen != nil {
			c.UI.SidebarOpen = *layer.UI.SidebarOpen
		}
	}
	if layer.Log != nil {
		if layer.Log.File != nil {
			c.Log.File = *layer.Log.File
		}
		if layer.Log.Level != nil {
			c.Log.Level = *layer.Log.Level
		}
	}
	if layer.Watch != nil {
		if layer.Watch.Interval != nil {
			c.Watch.Interval = *layer.Watch.Interval
		}
		if layer.Watch.EventLog != nil {
			c.Watch.EventLog = *layer.Watch.EventLog
		}
	}
}

// SlogLevel converts the configured log level to a slog.Level.
// Unknown strings fall back to info; Validate rejects them earlier.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
