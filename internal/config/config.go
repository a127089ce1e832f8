package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/aecwatch/internal/indexer"
	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/internal/watcher"
)

// EnvPrefix prefixes every environment override, e.g. AECWATCH_DEBOUNCE
const EnvPrefix = "AECWATCH"

// DefaultDBDir is created under the watch root when no database path is set.
// Being hidden, it is never watched.
const DefaultDBDir = ".aecwatch"

// Store backends
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory" // nothing persists past the process
)

var (
	// ErrInvalidConfig wraps every validation failure
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all runtime settings
type Config struct {
	Store               string        `mapstructure:"store" yaml:"store"`
	DBPath              string        `mapstructure:"db_path" yaml:"db_path"`
	Root                string        `mapstructure:"root" yaml:"root"`
	Debounce            time.Duration `mapstructure:"debounce" yaml:"-"`
	Extensions          []string      `mapstructure:"extensions" yaml:"extensions"`
	ExcludePatterns     []string      `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
	Workers             int           `mapstructure:"workers" yaml:"workers"`
	FileTimeout         time.Duration `mapstructure:"file_timeout" yaml:"-"`
	MaxRetries          int           `mapstructure:"max_retries" yaml:"max_retries"`
	ExtractionMandatory bool          `mapstructure:"extraction_mandatory" yaml:"extraction_mandatory"`
	CacheSize           int           `mapstructure:"cache_size" yaml:"cache_size"`
	LogLevel            string        `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Store:           StoreSQLite,
		Root:            ".",
		Debounce:        watcher.DefaultDebounce,
		Extensions:      append([]string(nil), watcher.DefaultExtensions...),
		ExcludePatterns: append([]string(nil), watcher.DefaultExcludePatterns...),
		Workers:         runtime.NumCPU(),
		FileTimeout:     indexer.DefaultFileTimeout,
		MaxRetries:      watcher.DefaultMaxRetries,
		CacheSize:       storage.DefaultCacheSize,
		LogLevel:        "info",
	}
}

// Load reads configuration from path (optional) and AECWATCH_* environment
// variables over the defaults, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Every key needs a default for AutomaticEnv to see it during Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("store", d.Store)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("root", d.Root)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("exclude_patterns", d.ExcludePatterns)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("file_timeout", d.FileTimeout)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("extraction_mandatory", d.ExtractionMandatory)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	var errs []error
	if c.Store != StoreSQLite && c.Store != StoreMemory {
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreSQLite, StoreMemory, c.Store))
	}
	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root is required"))
	}
	if c.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce must be positive, got %s", c.Debounce))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.FileTimeout <= 0 {
		errs = append(errs, fmt.Errorf("file_timeout must be positive, got %s", c.FileTimeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Filter(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error")
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Filter builds the path filter from Extensions and ExcludePatterns
func (c *Config) Filter() (*watcher.Filter, error) {
	return watcher.NewFilter(c.Extensions, c.ExcludePatterns)
}

// ResolvedDBPath returns DBPath, or the default location under Root
func (c *Config) ResolvedDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.Root, DefaultDBDir, "index.db")
}

// document is the on-disk shape; durations are written as "5s" strings
type document struct {
	Config      `yaml:",inline"`
	Debounce    string `yaml:"debounce"`
	FileTimeout string `yaml:"file_timeout"`
}

// Marshal renders c as YAML that Load reads back
func (c *Config) Marshal() ([]byte, error) {
	doc := document{
		Config:      *c,
		Debounce:    c.Debounce.String(),
		FileTimeout: c.FileTimeout.String(),
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
