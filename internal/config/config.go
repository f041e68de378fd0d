// Package config loads CLI defaults from an optional nic.yaml plus
// NIC_-prefixed environment variables. The engine itself takes
// explicit options; this only seeds flag defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the user-tunable defaults for the CLI.
type Config struct {
	TargetKB   int    `mapstructure:"target_kb"`
	Quality    int    `mapstructure:"quality"`
	MinQuality int    `mapstructure:"min_quality"`
	Format     string `mapstructure:"format"`
	KeepEXIF   bool   `mapstructure:"keep_exif"`
	MaxWidth   int    `mapstructure:"max_width"`
	MaxHeight  int    `mapstructure:"max_height"`
}

// Load reads defaults, an optional config file and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("target_kb", 1024)
	v.SetDefault("quality", 92)
	v.SetDefault("min_quality", 40)
	v.SetDefault("format", "jpeg")
	v.SetDefault("keep_exif", false)

	// Config file locations
	v.SetConfigName("nic")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/nic")

	// Environment variables
	v.SetEnvPrefix("NIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects nonsensical defaults before they reach the engine.
func (c *Config) Validate() error {
	if c.TargetKB <= 0 {
		return fmt.Errorf("target_kb must be positive, got %d", c.TargetKB)
	}
	if c.Quality <= 0 || c.Quality > 100 {
		return fmt.Errorf("quality %d out of (0,100]", c.Quality)
	}
	if c.MinQuality <= 0 || c.MinQuality > c.Quality {
		return fmt.Errorf("min_quality %d out of (0,%d]", c.MinQuality, c.Quality)
	}
	switch strings.ToLower(c.Format) {
	case "jpeg", "jpg", "png", "webp":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
