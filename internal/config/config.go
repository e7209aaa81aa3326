package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "OTRKEY"

func homeDirOrFallback() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Config holds all user-configurable settings.
type Config struct {
	// CatalogURL points at the published mirror_name,file_name CSV (or an archive of it).
	CatalogURL string `json:"catalog_url" mapstructure:"catalog_url"`
	// MirrorsURL points at the JSON mirror list.
	MirrorsURL string `json:"mirrors_url" mapstructure:"mirrors_url"`
	// RequestsPerSecond rate-limits HTTP requests.
	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"`
	// Workers is how many mirrors are scraped in parallel.
	Workers int `json:"workers" mapstructure:"workers"`
	// MirrorStaleHours controls how old a scraped mirror listing may get before it is fetched again.
	MirrorStaleHours int `json:"mirror_stale_hours" mapstructure:"mirror_stale_hours"`
	// UserAgent is sent with every request.
	UserAgent string `json:"user_agent" mapstructure:"user_agent"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level" mapstructure:"log_level"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CatalogURL:        "https://raw.githubusercontent.com/simonmb/otrkey_files/main/otrkey_files.csv",
		MirrorsURL:        "https://raw.githubusercontent.com/simonmb/otrkey_files/main/mirrors.json",
		RequestsPerSecond: 5.0,
		Workers:           8,
		MirrorStaleHours:  12,
		UserAgent:         "otrkey_files",
		LogLevel:          "info",
	}
}

// ConfigDir returns the directory where config and data files are stored.
func ConfigDir() string {
	if dir := os.Getenv("OTRKEY_CONFIG_DIR"); dir != "" {
		return dir
	}
	home := homeDirOrFallback()
	return filepath.Join(home, ".config", "otrkey")
}

// DBPath returns the path to the SQLite catalog cache.
func DBPath() string {
	return filepath.Join(ConfigDir(), "catalog.db")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LogPath returns the path of the log file used while the TUI is running.
func LogPath() string {
	return filepath.Join(ConfigDir(), "otrkey.log")
}

// Load reads config from disk, writing defaults if the file doesn't exist.
// Environment variables prefixed OTRKEY_ override file values.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := DefaultConfig().Save(); err != nil {
			return nil, err
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("catalog_url", d.CatalogURL)
	v.SetDefault("mirrors_url", d.MirrorsURL)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("mirror_stale_hours", d.MirrorStaleHours)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("log_level", d.LogLevel)
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0o644)
}
