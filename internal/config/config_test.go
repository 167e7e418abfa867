//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "tilde with nested path",
			input:    "~/music/library/albums",
			expected: filepath.Join(home, "music", "library", "albums"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/usr/local/music",
			expected: "/usr/local/music",
		},
		{
			name:     "relative path unchanged",
			input:    "music/albums",
			expected: "music/albums",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
		{
			name:     "tilde with slash",
			input:    "~/",
			expected: filepath.Join(home, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	// Should have at least one path
	if len(paths) == 0 {
		t.Error("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}

	// If we have home dir, first path should be ~/.config/onair/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		expectedFirst := filepath.Join(home, ".config", "onair", "config.toml")
		if paths[0] != expectedFirst {
			t.Errorf("first config path = %q, want %q", paths[0], expectedFirst)
		}
	}
}

func TestHasLastfmConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name: "all credentials set",
			config: Config{Lastfm: LastfmConfig{
				APIKey: "key", APISecret: "secret", SessionKey: "session",
			}},
			expected: true,
		},
		{
			name:     "missing session key",
			config:   Config{Lastfm: LastfmConfig{APIKey: "key", APISecret: "secret"}},
			expected: false,
		},
		{
			name:     "nothing set",
			config:   Config{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.HasLastfmConfig(); got != tt.expected {
				t.Errorf("HasLastfmConfig() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestToggles_DefaultOn(t *testing.T) {
	off := false
	cfg := Config{}
	if !cfg.NotificationsEnabled() {
		t.Error("NotificationsEnabled() = false, want true by default")
	}
	if !cfg.MPRISEnabled() {
		t.Error("MPRISEnabled() = false, want true by default")
	}

	cfg.Notifications = &off
	cfg.MPRIS = &off
	if cfg.NotificationsEnabled() {
		t.Error("NotificationsEnabled() = true, want false")
	}
	if cfg.MPRISEnabled() {
		t.Error("MPRISEnabled() = true, want false")
	}
}

func TestGetRetryConfig(t *testing.T) {
	tests := []struct {
		name        string
		retry       RetryConfig
		wantMax     int
		wantDelayMS int
	}{
		{"defaults", RetryConfig{}, 3, 500},
		{"custom", RetryConfig{MaxAttempts: 5, DelayMS: 1000}, 5, 1000},
		{"negative", RetryConfig{MaxAttempts: -1, DelayMS: -10}, 3, 500},
		{"too many attempts", RetryConfig{MaxAttempts: 50}, 3, 500},
		{"upper bound", RetryConfig{MaxAttempts: 20}, 20, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Retry: tt.retry}
			got := cfg.GetRetryConfig()
			if got.MaxAttempts != tt.wantMax {
				t.Errorf("MaxAttempts = %d, want %d", got.MaxAttempts, tt.wantMax)
			}
			if got.DelayMS != tt.wantDelayMS {
				t.Errorf("DelayMS = %d, want %d", got.DelayMS, tt.wantDelayMS)
			}
		})
	}
}

func TestGetRetryConfig_StallTimeout(t *testing.T) {
	cfg := Config{}
	if got := cfg.GetRetryConfig().StallTimeout(); got != 15*time.Second {
		t.Errorf("default StallTimeout() = %v, want 15s", got)
	}

	cfg.Retry.StallTimeoutMS = 4000
	if got := cfg.GetRetryConfig().StallTimeout(); got != 4*time.Second {
		t.Errorf("StallTimeout() = %v, want 4s", got)
	}
}

func TestRetryConfig_Delay(t *testing.T) {
	r := RetryConfig{DelayMS: 250}
	if r.Delay() != 250*time.Millisecond {
		t.Errorf("Delay() = %v, want 250ms", r.Delay())
	}
}

// isolate points HOME and the working directory at a fresh temp dir so the
// user's real config never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Chdir(tmpDir)
	return tmpDir
}

func TestLoad_EmptyConfig(t *testing.T) {
	isolate(t)

	if err := os.WriteFile("config.toml", []byte(""), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != DefaultListen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, DefaultListen)
	}
	if cfg.Volume != DefaultVolume {
		t.Errorf("Volume = %d, want %d", cfg.Volume, DefaultVolume)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if len(cfg.Stations) != 0 {
		t.Errorf("Stations = %v, want none", cfg.Stations)
	}
}

func TestLoad_Stations(t *testing.T) {
	isolate(t)

	configContent := `
volume = 140
listen = "127.0.0.1:9000"

[retry]
max_attempts = 4
delay_ms = 200

[[stations]]
name = "groovesalad"
title = "Groove Salad"
url = "https://somafm.com/groovesalad/"

  [[stations.streams]]
  name = "high"
  url = "https://ice1.somafm.com/groovesalad-256-mp3"

  [[stations.streams]]
  name = "low"
  url = "https://ice1.somafm.com/groovesalad-64-aac"

[[stations]]
name = " dronezone "

  [[stations.streams]]
  name = "mp3"
  url = "https://ice1.somafm.com/dronezone-128-mp3"
`
	if err := os.WriteFile("config.toml", []byte(configContent), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Volume != 100 {
		t.Errorf("Volume = %d, want clamped 100", cfg.Volume)
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if r := cfg.GetRetryConfig(); r.MaxAttempts != 4 || r.DelayMS != 200 {
		t.Errorf("GetRetryConfig() = %+v, want 4/200", r)
	}

	if len(cfg.Stations) != 2 {
		t.Fatalf("len(Stations) = %d, want 2", len(cfg.Stations))
	}
	gs := cfg.Stations[0]
	if gs.Name != "groovesalad" || gs.Title != "Groove Salad" {
		t.Errorf("Stations[0] = %+v", gs)
	}
	if len(gs.Streams) != 2 || gs.Streams[1].Name != "low" {
		t.Errorf("Stations[0].Streams = %+v", gs.Streams)
	}
	dz := cfg.Stations[1]
	if dz.Name != "dronezone" {
		t.Errorf("Stations[1].Name = %q, want trimmed", dz.Name)
	}
	if dz.Title != "dronezone" {
		t.Errorf("Stations[1].Title = %q, want name as fallback", dz.Title)
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	isolate(t)

	if err := os.WriteFile("config.toml", []byte("volume = [unclosed"), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for invalid TOML")
	}
}

func TestLoad_HomeConfigOverriddenByLocal(t *testing.T) {
	home := isolate(t)

	homeCfg := filepath.Join(home, ".config", "onair", "config.toml")
	if err := os.MkdirAll(filepath.Dir(homeCfg), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(homeCfg, []byte("volume = 10\nlog_level = \"debug\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile("config.toml", []byte("volume = 40\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Volume != 40 {
		t.Errorf("Volume = %d, want 40 (local wins)", cfg.Volume)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug (from home config)", cfg.LogLevel)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("log_file = \"~/onair.log\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.LogFile != filepath.Join(dir, "onair.log") {
		t.Errorf("LogFile = %q, want expanded path", cfg.LogFile)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFile() expected error for missing file")
	}
}
