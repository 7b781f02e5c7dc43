// Package config provides configuration for the collection engine: a YAML
// file merged with environment overrides, validated before use, with hot
// reload in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names a deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the full engine configuration.
type Config struct {
	Environment Environment    `yaml:"environment"`
	Supabase    SupabaseConfig `yaml:"supabase"`
	Engine      EngineConfig   `yaml:"engine"`
}

// SupabaseConfig locates the remote store.
type SupabaseConfig struct {
	URL          string `yaml:"url"`
	Key          string `yaml:"key"`
	FoldersTable string `yaml:"folders_table"`
	ItemsTable   string `yaml:"items_table"`
}

// EngineConfig tunes engine behavior.
type EngineConfig struct {
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
	PageSize      int           `yaml:"page_size"`
}

// Load reads the YAML file at path (skipped when empty or missing), applies
// environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOOM_ENVIRONMENT"); v != "" {
		cfg.Environment = Environment(v)
	}
	if v := os.Getenv("LOOM_SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("LOOM_SUPABASE_KEY"); v != "" {
		cfg.Supabase.Key = v
	}
	if v := os.Getenv("LOOM_FOLDERS_TABLE"); v != "" {
		cfg.Supabase.FoldersTable = v
	}
	if v := os.Getenv("LOOM_ITEMS_TABLE"); v != "" {
		cfg.Supabase.ItemsTable = v
	}
	if v := os.Getenv("LOOM_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.RemoteTimeout = d
		}
	}
	if v := os.Getenv("LOOM_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.PageSize = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = Development
	}
	if cfg.Supabase.FoldersTable == "" {
		cfg.Supabase.FoldersTable = "folders"
	}
	if cfg.Supabase.ItemsTable == "" {
		cfg.Supabase.ItemsTable = "items"
	}
	if cfg.Engine.RemoteTimeout <= 0 {
		cfg.Engine.RemoteTimeout = 10 * time.Second
	}
	if cfg.Engine.PageSize <= 0 {
		cfg.Engine.PageSize = 30
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Production:
	default:
		return fmt.Errorf("invalid environment %q", c.Environment)
	}
	if c.Supabase.URL == "" {
		return fmt.Errorf("supabase url is required")
	}
	if c.Supabase.Key == "" {
		return fmt.Errorf("supabase key is required")
	}
	if c.Engine.PageSize < 1 || c.Engine.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100, got %d", c.Engine.PageSize)
	}
	if c.Engine.RemoteTimeout < time.Second {
		return fmt.Errorf("remote timeout must be at least 1s, got %s", c.Engine.RemoteTimeout)
	}
	return nil
}

// IsDevelopment reports whether hot reload and debug logging apply.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}
