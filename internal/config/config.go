// Package config loads the onair configuration from TOML files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	appName = "onair"

	DefaultListen       = "127.0.0.1:7766"
	DefaultVolume       = 75
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = 500 * time.Millisecond
	DefaultStallTimeout = 15 * time.Second
)

type Config struct {
	LogLevel      string `koanf:"log_level"`  // "debug", "info", "warn", "error"
	LogFormat     string `koanf:"log_format"` // "console" or "json"
	LogFile       string `koanf:"log_file"`
	Listen        string `koanf:"listen"` // HTTP API address
	Volume        int    `koanf:"volume"` // initial volume when none is saved (0-100)
	Notifications *bool  `koanf:"notifications"`
	MPRIS         *bool  `koanf:"mpris"`

	// Retry behavior when a stream fails
	Retry RetryConfig `koanf:"retry"`

	// Last.fm now playing updates (enabled when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	// Station catalog, in prev/next order
	Stations []StationConfig `koanf:"stations"`
}

// RetryConfig holds stream retry settings.
type RetryConfig struct {
	MaxAttempts int `koanf:"max_attempts"` // retries before giving up (default: 3)
	DelayMS     int `koanf:"delay_ms"`     // delay before each retry (default: 500)

	// A stream that delivers no data for this long fails (default: 15000)
	StallTimeoutMS int `koanf:"stall_timeout_ms"`
}

// LastfmConfig holds Last.fm credentials.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	SessionKey string `koanf:"session_key"`
}

// StationConfig describes one radio station.
type StationConfig struct {
	Name    string         `koanf:"name"`
	Title   string         `koanf:"title"`
	URL     string         `koanf:"url"` // homepage
	Image   string         `koanf:"image"`
	Streams []StreamConfig `koanf:"streams"`
}

// StreamConfig is one named stream (quality) of a station.
type StreamConfig struct {
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
}

// Load reads the default config files.
func Load() (*Config, error) {
	return load(getConfigPaths())
}

// LoadFile reads a single config file. The file must exist.
func LoadFile(path string) (*Config, error) {
	path = expandPath(path)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return load([]string{path})
}

func load(paths []string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		LogLevel:  "info",
		LogFormat: "console",
		Listen:    DefaultListen,
		Volume:    DefaultVolume,
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Volume = clampVolume(cfg.Volume)
	cfg.Listen = strings.TrimSpace(cfg.Listen)
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.LogFile != "" {
		cfg.LogFile = expandPath(cfg.LogFile)
	}

	for i := range cfg.Stations {
		st := &cfg.Stations[i]
		st.Name = strings.TrimSpace(st.Name)
		if st.Title == "" {
			st.Title = st.Name
		}
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/onair/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func clampVolume(v int) int {
	return min(max(v, 0), 100)
}

// HasLastfmConfig returns true if Last.fm now playing updates are configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != "" && c.Lastfm.SessionKey != ""
}

// NotificationsEnabled reports whether desktop notifications are on (default: true).
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications == nil || *c.Notifications
}

// MPRISEnabled reports whether the media keys adapter is on (default: true).
func (c *Config) MPRISEnabled() bool {
	return c.MPRIS == nil || *c.MPRIS
}

// GetRetryConfig returns the retry configuration with defaults applied.
func (c *Config) GetRetryConfig() RetryConfig {
	cfg := c.Retry

	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > 20 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.DelayMS <= 0 {
		cfg.DelayMS = int(DefaultRetryDelay / time.Millisecond)
	}
	if cfg.StallTimeoutMS <= 0 {
		cfg.StallTimeoutMS = int(DefaultStallTimeout / time.Millisecond)
	}

	return cfg
}

// Delay returns the retry delay as a duration.
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelayMS) * time.Millisecond
}

// StallTimeout returns the stream idle limit as a duration.
func (r RetryConfig) StallTimeout() time.Duration {
	return time.Duration(r.StallTimeoutMS) * time.Millisecond
}
