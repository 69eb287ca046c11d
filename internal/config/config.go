// Package config loads the workspace configuration for td.
//
// Configuration lives at <workspace>/.trackdown/config.yaml. Every key has
// a default, so an absent file yields a fully usable config.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ConfigDirName is the per-workspace configuration directory.
const ConfigDirName = ".trackdown"

// Config holds workspace settings.
type Config struct {
	// Root is the directory the kind subdirectories live under,
	// relative to the workspace unless absolute.
	Root string `mapstructure:"root"`
	// CacheTTL bounds hierarchy cache freshness.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// DefaultActor is recorded on transitions when --actor is not given.
	DefaultActor string `mapstructure:"default_actor"`
	// Color is one of auto, always, never.
	Color string `mapstructure:"color"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Root:         ".",
		CacheTTL:     5 * time.Minute,
		DefaultActor: "",
		Color:        "auto",
	}
}

// Load reads <workspace>/.trackdown/config.yaml, falling back to defaults
// for absent keys or an absent file.
func Load(workspace string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(workspace, ConfigDirName))

	defaults := Default()
	v.SetDefault("root", defaults.Root)
	v.SetDefault("cache_ttl", defaults.CacheTTL)
	v.SetDefault("default_actor", defaults.DefaultActor)
	v.SetDefault("color", defaults.Color)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(workspace, cfg.Root)
	}
	return &cfg, nil
}
