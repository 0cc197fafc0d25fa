package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load
const FileName = "rocal.yaml"

// ErrNotFound is returned by LoadFile when the named file does not exist
var ErrNotFound = errors.New("config file not found")

// Config represents the rocal.yaml configuration
type Config struct {
	// Directory holding templates, relative to the project root
	Templates string `yaml:"templates,omitempty"`

	// Directory rendered pages are written to
	Output string `yaml:"output,omitempty"`

	// Template file extension
	Extension string `yaml:"extension,omitempty"`

	// Global data file merged into every template's context
	Data string `yaml:"data,omitempty"`

	// Artifact cache configuration
	Cache *CacheConfig `yaml:"cache,omitempty"`

	// File watcher configuration
	Watch *WatchConfig `yaml:"watch,omitempty"`

	// Preview server configuration
	Preview *PreviewConfig `yaml:"preview,omitempty"`

	// Project root the relative paths above are resolved against. Set by
	// Load, never read from the file.
	Root string `yaml:"-"`
}

// CacheConfig contains artifact cache configuration
type CacheConfig struct {
	// Whether rendered pages are cached between builds
	Enabled *bool `yaml:"enabled,omitempty"`

	// Cache directory
	Dir string `yaml:"dir,omitempty"`

	// Maximum cache size in bytes
	MaxSize int64 `yaml:"maxSize,omitempty"`

	// Maximum entry age
	MaxAge time.Duration `yaml:"maxAge,omitempty"`

	// Eviction strategy: "lru" | "lfu" | "fifo"
	Strategy string `yaml:"strategy,omitempty"`
}

// WatchConfig contains file watcher configuration
type WatchConfig struct {
	// Quiet period after the last change before a rebuild
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// PreviewConfig contains preview server configuration
type PreviewConfig struct {
	// Server host
	Host string `yaml:"host,omitempty"`

	// Server port
	Port int `yaml:"port,omitempty"`
}

// Load loads rocal.yaml from projectPath. A missing file yields the
// default configuration.
func Load(projectPath string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(projectPath, FileName))
	if errors.Is(err, ErrNotFound) {
		cfg = DefaultConfig()
		cfg.Root = projectPath
		return cfg, nil
	}
	return cfg, err
}

// LoadFile loads the configuration at path. Paths in the file are relative
// to its directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	var config Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(&config)
	config.Root = filepath.Dir(path)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &config, nil
}

// Save writes config to rocal.yaml in projectPath
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return atomic.WriteFile(filepath.Join(projectPath, FileName), bytes.NewReader(data))
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	enabled := true
	return &Config{
		Templates: "templates",
		Output:    "dist",
		Extension: ".rui",
		Cache: &CacheConfig{
			Enabled:  &enabled,
			Dir:      filepath.Join(".rocal", "cache"),
			MaxSize:  64 << 20,
			MaxAge:   7 * 24 * time.Hour,
			Strategy: "lru",
		},
		Watch: &WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		Preview: &PreviewConfig{
			Host: "localhost",
			Port: 5174,
		},
		Root: ".",
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Templates == "" {
		config.Templates = defaults.Templates
	}
	if config.Output == "" {
		config.Output = defaults.Output
	}
	if config.Extension == "" {
		config.Extension = defaults.Extension
	}
	if !strings.HasPrefix(config.Extension, ".") {
		config.Extension = "." + config.Extension
	}

	if config.Cache == nil {
		config.Cache = defaults.Cache
	} else {
		if config.Cache.Enabled == nil {
			config.Cache.Enabled = defaults.Cache.Enabled
		}
		if config.Cache.Dir == "" {
			config.Cache.Dir = defaults.Cache.Dir
		}
		if config.Cache.MaxSize == 0 {
			config.Cache.MaxSize = defaults.Cache.MaxSize
		}
		if config.Cache.MaxAge == 0 {
			config.Cache.MaxAge = defaults.Cache.MaxAge
		}
		if config.Cache.Strategy == "" {
			config.Cache.Strategy = defaults.Cache.Strategy
		}
	}

	if config.Watch == nil {
		config.Watch = defaults.Watch
	} else if config.Watch.Debounce == 0 {
		config.Watch.Debounce = defaults.Watch.Debounce
	}

	if config.Preview == nil {
		config.Preview = defaults.Preview
	} else {
		if config.Preview.Host == "" {
			config.Preview.Host = defaults.Preview.Host
		}
		if config.Preview.Port == 0 {
			config.Preview.Port = defaults.Preview.Port
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Preview != nil && (c.Preview.Port < 0 || c.Preview.Port > 65535) {
		return fmt.Errorf("preview.port %d is out of range", c.Preview.Port)
	}
	if c.Watch != nil && c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Cache != nil {
		switch strings.ToLower(c.Cache.Strategy) {
		case "", "lru", "lfu", "fifo":
		default:
			return fmt.Errorf("cache.strategy %q is not one of lru, lfu, fifo", c.Cache.Strategy)
		}
	}
	return nil
}

// CacheEnabled reports whether the artifact cache is on
func (c *Config) CacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled != nil && *c.Cache.Enabled
}

// Path resolves a configured path against the project root
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// TemplatesDir returns the resolved templates directory
func (c *Config) TemplatesDir() string {
	return c.Path(c.Templates)
}

// OutputDir returns the resolved output directory
func (c *Config) OutputDir() string {
	return c.Path(c.Output)
}

// DataFile returns the resolved global data file, or "" if none is set
func (c *Config) DataFile() string {
	return c.Path(c.Data)
}

// CacheDir returns the resolved cache directory
func (c *Config) CacheDir() string {
	return c.Path(c.Cache.Dir)
}
