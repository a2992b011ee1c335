// Package config loads and persists linkstash configuration.
//
// Configuration is resolved by viper from, in order of precedence:
// explicit flags bound by the CLI, STASH_* environment variables, and a
// linkstash.toml (or .yaml/.json) file in the data directory or the
// current directory. Save always writes TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config holds all linkstash settings.
type Config struct {
	// DataDir is where the local store lives (default: ~/.linkstash)
	DataDir string `mapstructure:"data_dir" toml:"data_dir"`

	// Backend selects the storage backend: auto, sqlite, or flatfile.
	// "auto" probes sqlite and falls back to flatfile.
	Backend string `mapstructure:"backend" toml:"backend"`

	Remote    RemoteConfig    `mapstructure:"remote" toml:"remote"`
	Daemon    DaemonConfig    `mapstructure:"daemon" toml:"daemon"`
	Dashboard DashboardConfig `mapstructure:"dashboard" toml:"dashboard"`
}

// RemoteConfig identifies the cloud post store and its owner.
type RemoteConfig struct {
	// URL is the libsql:// database URL (empty disables sync)
	URL string `mapstructure:"url" toml:"url"`

	// AuthToken authenticates against the remote database
	AuthToken string `mapstructure:"auth_token" toml:"auth_token"`

	// User is the owner identity for remote rows (empty = signed out)
	User string `mapstructure:"user" toml:"user"`
}

// DaemonConfig tunes the background sync worker.
type DaemonConfig struct {
	// ProbeInterval is how often connectivity is re-checked
	ProbeInterval time.Duration `mapstructure:"probe_interval" toml:"probe_interval"`

	// DebounceInterval batches rapid store-file changes together
	DebounceInterval time.Duration `mapstructure:"debounce_interval" toml:"debounce_interval"`

	// LogFile receives rotated daemon logs (empty = stderr)
	LogFile string `mapstructure:"log_file" toml:"log_file"`

	// LogMaxSizeMB caps a log file before rotation
	LogMaxSizeMB int `mapstructure:"log_max_size_mb" toml:"log_max_size_mb"`
}

// DashboardConfig tunes the WebSocket dashboard server.
type DashboardConfig struct {
	// Port to listen on
	Port int `mapstructure:"port" toml:"port"`
}

// FileName is the base name of the config file (without extension).
const FileName = "linkstash"

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir: filepath.Join(home, ".linkstash"),
		Backend: "auto",
		Daemon: DaemonConfig{
			ProbeInterval:    30 * time.Second,
			DebounceInterval: 500 * time.Millisecond,
			LogMaxSizeMB:     10,
		},
		Dashboard: DashboardConfig{
			Port: 8080,
		},
	}
}

// Load resolves the configuration.
//
// When path is non-empty only that file is read; otherwise viper searches
// the default locations. A missing config file is not an error - defaults
// and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("backend", def.Backend)
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.auth_token", "")
	v.SetDefault("remote.user", "")
	v.SetDefault("daemon.probe_interval", def.Daemon.ProbeInterval)
	v.SetDefault("daemon.debounce_interval", def.Daemon.DebounceInterval)
	v.SetDefault("daemon.log_file", "")
	v.SetDefault("daemon.log_max_size_mb", def.Daemon.LogMaxSizeMB)
	v.SetDefault("dashboard.port", def.Dashboard.Port)

	v.SetEnvPrefix("STASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		v.AddConfigPath(def.DataDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration as TOML to path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// DefaultPath returns the config file location inside the data directory.
func (c *Config) DefaultPath() string {
	return filepath.Join(c.DataDir, FileName+".toml")
}
