// Package config loads the lazyload command configuration from a YAML file,
// LAZYLOAD_* environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	lazyload "github.com/abihf/lazy-loader"
	"github.com/abihf/lazy-loader/internal/logging"
)

// Config represents the complete command configuration
type Config struct {
	// BaseURL is prepended to relative endpoint paths
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds a whole fetch run
	Timeout time.Duration `mapstructure:"timeout"`
	// CacheSize is the number of query entries kept in memory
	CacheSize int              `mapstructure:"cache_size"`
	Endpoints []EndpointConfig `mapstructure:"endpoints"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

// EndpointConfig describes one endpoint to load
type EndpointConfig struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
	// Priority is one of "high", "medium" or "low" (default "medium")
	Priority string `mapstructure:"priority"`
	// Delay is added to the priority delay
	Delay time.Duration `mapstructure:"delay"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "http://localhost:8000/api")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("cache_size", 256)

	v.SetDefault("logging.level", logging.LevelInfo)
	v.SetDefault("logging.format", logging.FormatText)
}

// Load reads configuration into v and decodes it. An explicit configFile must
// exist; otherwise lazyload.yaml is looked up in the working directory and in
// $HOME/.config/lazyload. A missing envFile is ignored.
func Load(v *viper.Viper, configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lazyload")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/lazyload")
	}

	// LAZYLOAD_LOGGING_LEVEL for logging.level
	v.SetEnvPrefix("LAZYLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}

	seen := make(map[string]bool, len(c.Endpoints))
	for i, e := range c.Endpoints {
		if e.Name == "" {
			return fmt.Errorf("endpoints[%d]: name is required", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("endpoints[%d]: duplicate name %q", i, e.Name)
		}
		seen[e.Name] = true

		if e.Path == "" {
			return fmt.Errorf("endpoint %q: path is required", e.Name)
		}
		if _, err := e.ParsedPriority(); err != nil {
			return fmt.Errorf("endpoint %q: %w", e.Name, err)
		}
		if e.Delay < 0 {
			return fmt.Errorf("endpoint %q: delay must not be negative", e.Name)
		}
	}
	return nil
}

// Select returns the endpoints with the given names, in that order. No names
// selects every endpoint.
func (c *Config) Select(names []string) ([]EndpointConfig, error) {
	if len(names) == 0 {
		return c.Endpoints, nil
	}

	byName := make(map[string]EndpointConfig, len(c.Endpoints))
	for _, e := range c.Endpoints {
		byName[e.Name] = e
	}
	selected := make([]EndpointConfig, 0, len(names))
	for _, name := range names {
		e, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown endpoint %q", name)
		}
		selected = append(selected, e)
	}
	return selected, nil
}

// ParsedPriority returns the endpoint priority, medium when unset.
func (e EndpointConfig) ParsedPriority() (lazyload.Priority, error) {
	if e.Priority == "" {
		return lazyload.PriorityMedium, nil
	}
	return lazyload.ParsePriority(e.Priority)
}

// URL resolves the endpoint path against base. Absolute URLs are kept.
func (e EndpointConfig) URL(base string) string {
	if strings.Contains(e.Path, "://") {
		return e.Path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(e.Path, "/")
}
