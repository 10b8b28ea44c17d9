package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// AppName names the config and cache directories.
const AppName = "cc-enhanced"

// ErrNoHome is returned when no home directory can be determined. Nothing
// can run without one.
var ErrNoHome = errors.New("config: home directory unavailable")

// Config holds all cc-enhanced configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Refresh RefreshConfig `toml:"refresh"`
	Pricing PricingConfig `toml:"pricing"`
	Daemon  DaemonConfig  `toml:"daemon"`
	Log     LogConfig     `toml:"log"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	ClaudeDir   string `toml:"claude_dir,omitempty"`
	DefaultDays int    `toml:"default_days"`
	Theme       string `toml:"theme"`
}

// RefreshConfig controls background refresh in the dashboard.
type RefreshConfig struct {
	AutoRefresh bool `toml:"auto_refresh"`
	IntervalSec int  `toml:"interval_sec"`
	WatchFiles  bool `toml:"watch_files"`
}

// DaemonConfig holds settings for the long-running API server.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	IntervalSec  int    `toml:"interval_sec"`
	EventsBuffer int    `toml:"events_buffer"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{DefaultDays: 7, Theme: "flexoki-dark"},
		Refresh: RefreshConfig{
			AutoRefresh: true,
			IntervalSec: 30,
			WatchFiles:  true,
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			IntervalSec:  15,
			EventsBuffer: 200,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Interval is the refresh period, never below one second.
func (r RefreshConfig) Interval() time.Duration {
	return seconds(r.IntervalSec)
}

// Interval is the poll period, never below one second.
func (d DaemonConfig) Interval() time.Duration {
	return seconds(d.IntervalSec)
}

func seconds(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Duration(n) * time.Second
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", AppName)
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config file at path. Keys missing from the file keep
// their defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path, creating its directory.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // see LoadFrom
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// HomeDir returns the user's home directory or ErrNoHome.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrNoHome
	}
	return home, nil
}

// DataRoot resolves the Claude data directory: the flag, then the config
// file, then ~/.claude. A leading ~ is expanded.
func DataRoot(cfg Config, flag string) (string, error) {
	dir := flag
	if dir == "" {
		dir = cfg.General.ClaudeDir
	}
	if dir == "" {
		home, err := HomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".claude"), nil
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := HomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return filepath.Clean(dir), nil
}

// ProjectsDir is where session logs live under the data root.
func ProjectsDir(claudeDir string) string {
	return filepath.Join(claudeDir, "projects")
}

// TodosDir is where todo files live under the data root.
func TodosDir(claudeDir string) string {
	return filepath.Join(claudeDir, "todos")
}
