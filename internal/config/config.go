// Package config loads sync-core settings from an optional TOML file and
// WORDTRAIL_* environment variables, with sane defaults for everything.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the sync core.
type Config struct {
	// DBPath is the SQLite file for the persistent cache. Empty means the
	// default XDG data path.
	DBPath string `mapstructure:"db_path"`

	// BaseURL is the sync/catalog service endpoint.
	BaseURL string `mapstructure:"base_url"`

	// AuthToken is the bearer token for the service. Usually injected via
	// WORDTRAIL_AUTH_TOKEN rather than the config file.
	AuthToken string `mapstructure:"auth_token"`

	// SyncInterval is the background synchronizer tick.
	SyncInterval time.Duration `mapstructure:"sync_interval"`

	// Backoff bounds for repeated sync failures.
	BackoffInitial    time.Duration `mapstructure:"backoff_initial"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`

	// RetryAttempts bounds the transport-level retry decorator.
	RetryAttempts int `mapstructure:"retry_attempts"`

	// TTL classes for persisted entries.
	ShortTTL time.Duration `mapstructure:"short_ttl"`
	LongTTL  time.Duration `mapstructure:"long_ttl"`
}

// Load reads configuration in priority order: defaults, then the config
// file (if present), then WORDTRAIL_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("db_path", "")
	v.SetDefault("base_url", "https://api.wordtrail.app")
	v.SetDefault("auth_token", "")
	v.SetDefault("sync_interval", 5*time.Second)
	v.SetDefault("backoff_initial", 2*time.Second)
	v.SetDefault("backoff_max", 2*time.Minute)
	v.SetDefault("backoff_multiplier", 2.0)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("short_ttl", 7*24*time.Hour)
	v.SetDefault("long_ttl", 30*24*time.Hour)

	v.SetEnvPrefix("WORDTRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("syncore")
	v.SetConfigType("toml")
	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is a real problem.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// configDir resolves $XDG_CONFIG_HOME/wordtrail (or ~/.config/wordtrail).
func configDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "wordtrail"), nil
}
