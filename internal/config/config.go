// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/hostsync/internal/platform"
	"github.com/jmylchreest/hostsync/internal/transport"
)

// Default configuration values.
const (
	DefaultBus          = "session"
	DefaultInterface    = "org.anbox.PlatformService"
	DefaultCallTimeout  = 2 * time.Second
	DefaultSyncInterval = 1 * time.Second
	DefaultClipInterval = 1 * time.Second
	DefaultClipTimeout  = 5 * time.Second
	DefaultLogLevel     = "info"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "2s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Bare integers are milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '2s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the configuration for hostsyncd.
// Loaded from ~/.config/hostsync/hostsyncd.toml
type Config struct {
	Service   ServiceConfig   `toml:"service"`
	Transport TransportConfig `toml:"transport"`
	Sync      SyncConfig      `toml:"sync"`
	Clipboard ClipboardConfig `toml:"clipboard"`
	Log       LogConfig       `toml:"log"`
}

// ServiceConfig addresses the host platform service.
type ServiceConfig struct {
	Bus       string `toml:"bus"`       // "session", "system" or a D-Bus address
	Name      string `toml:"name"`      // Well-known bus name
	Path      string `toml:"path"`      // Object path
	Interface string `toml:"interface"` // D-Bus interface with the Transact method
}

// TransportConfig contains per-call transport settings.
type TransportConfig struct {
	CallTimeout Duration `toml:"call_timeout"` // Bound on one round trip
}

// SyncConfig contains window state synchronization settings.
type SyncConfig struct {
	StateFile string   `toml:"state_file"` // Guest window state file written by the compositor
	Interval  Duration `toml:"interval"`   // Periodic sync, "0" = only on state changes
}

// ClipboardConfig contains clipboard bridge settings.
type ClipboardConfig struct {
	Enabled        bool     `toml:"enabled"`
	PollInterval   Duration `toml:"poll_interval"`
	CommandTimeout Duration `toml:"command_timeout"` // Bound on one read or write command
	ReadCommand    string   `toml:"read_command"`    // Auto-detected if empty
	WriteCommand   string   `toml:"write_command"`   // Auto-detected if empty
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Bus:       DefaultBus,
			Name:      platform.ServiceName,
			Path:      platform.ObjectPath,
			Interface: DefaultInterface,
		},
		Transport: TransportConfig{
			CallTimeout: Duration(DefaultCallTimeout),
		},
		Sync: SyncConfig{
			StateFile: filepath.Join(StatePath(), "windows.yaml"),
			Interval:  Duration(DefaultSyncInterval),
		},
		Clipboard: ClipboardConfig{
			Enabled:        true,
			PollInterval:   Duration(DefaultClipInterval),
			CommandTimeout: Duration(DefaultClipTimeout),
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "hostsync", "hostsyncd.toml")
}

// StatePath returns the path to the runtime state directory.
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state.
func StatePath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "hostsync")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Sync.StateFile = expandPath(cfg.Sync.StateFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return errors.New("service name must not be empty")
	}
	if !strings.HasPrefix(c.Service.Path, "/") {
		return fmt.Errorf("service path must be absolute, got %q", c.Service.Path)
	}
	if c.Service.Interface == "" {
		return errors.New("service interface must not be empty")
	}

	if c.Transport.CallTimeout.Duration() <= 0 {
		return fmt.Errorf("call_timeout must be positive, got %s", c.Transport.CallTimeout.Duration())
	}
	if c.Sync.Interval.Duration() < 0 {
		return fmt.Errorf("sync interval must not be negative, got %s", c.Sync.Interval.Duration())
	}
	if c.Clipboard.Enabled && c.Clipboard.PollInterval.Duration() <= 0 {
		return fmt.Errorf("clipboard poll_interval must be positive, got %s", c.Clipboard.PollInterval.Duration())
	}
	if c.Clipboard.Enabled && c.Clipboard.CommandTimeout.Duration() <= 0 {
		return fmt.Errorf("clipboard command_timeout must be positive, got %s", c.Clipboard.CommandTimeout.Duration())
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// TransportService returns the bus addressing of the platform service.
func (c *Config) TransportService() transport.ServiceConfig {
	return transport.ServiceConfig{
		Name:      c.Service.Name,
		Path:      c.Service.Path,
		Interface: c.Service.Interface,
	}
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", level)
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
