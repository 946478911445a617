package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Console    string            `mapstructure:"console"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start"`
	BinaryPath string `mapstructure:"binary_path"` // trophyd binary, auto-discovered if empty
	SocketPath string `mapstructure:"socket_path"`
	PIDPath    string `mapstructure:"pid_path"`
	DBPath     string `mapstructure:"db_path"`
}

// APIConfig configures the remote achievements API.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`

	// SubscriptionExpiresAt is an RFC 3339 timestamp. Empty means the
	// account has no active subscription.
	SubscriptionExpiresAt string        `mapstructure:"subscription_expires_at"`
	Timeout               time.Duration `mapstructure:"timeout"`
	RequestsPerSecond     float64       `mapstructure:"requests_per_second"`
	Burst                 int           `mapstructure:"burst"`
}

// NotificationsConfig configures unlock notifications.
type NotificationsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Sound   bool `mapstructure:"sound"`
}

// DiscordConfig configures the optional Discord notification sink.
type DiscordConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// WatchConfig configures the reconciliation loop.
type WatchConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	Nudges        bool          `mapstructure:"nudges"`
	NudgeDebounce time.Duration `mapstructure:"nudge_debounce"`
}

// Config represents the application configuration.
type Config struct {
	Language      string              `mapstructure:"language"`
	LibraryPath   string              `mapstructure:"library_path"`
	Watch         WatchConfig         `mapstructure:"watch"`
	API           APIConfig           `mapstructure:"api"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Discord       DiscordConfig       `mapstructure:"discord"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Daemon        DaemonConfig        `mapstructure:"daemon"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("language", DefaultLanguage)
	v.SetDefault("library_path", "") // Empty means DefaultLibraryPath

	v.SetDefault("watch.poll_interval", DefaultPollInterval)
	v.SetDefault("watch.nudges", true)
	v.SetDefault("watch.nudge_debounce", DefaultNudgeDebounce)

	v.SetDefault("api.base_url", DefaultAPIBaseURL)
	v.SetDefault("api.token", "")
	v.SetDefault("api.subscription_expires_at", "")
	v.SetDefault("api.timeout", DefaultAPITimeout)
	v.SetDefault("api.requests_per_second", DefaultRequestsPerSecond)
	v.SetDefault("api.burst", DefaultRequestBurst)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.sound", true)

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.channel_id", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.console", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"reconciler": "info",
		"merge":      "info",
		"parser":     "warn",
		"detector":   "warn",
		"watcher":    "warn",
	})

	v.SetDefault("daemon.auto_start", true)
	v.SetDefault("daemon.socket_path", "")
	v.SetDefault("daemon.pid_path", "")
	v.SetDefault("daemon.db_path", "")
}

// Load reads configuration from file and TROPHY_ environment variables.
// An empty file uses the default search path:
//   - $XDG_CONFIG_HOME/trophy/config.yaml
//   - $HOME/.config/trophy/config.yaml
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("TROPHY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyPathDefaults()
	return &cfg, nil
}

func (c *Config) applyPathDefaults() {
	if c.LibraryPath == "" {
		c.LibraryPath = DefaultLibraryPath()
	}
	if c.Daemon.SocketPath == "" {
		c.Daemon.SocketPath = DefaultSocketPath()
	}
	if c.Daemon.PIDPath == "" {
		c.Daemon.PIDPath = DefaultPIDPath()
	}
	if c.Daemon.DBPath == "" {
		c.Daemon.DBPath = DefaultDBPath()
	}
	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = DefaultPollInterval
	}
	c.LibraryPath = expandHome(c.LibraryPath)
	c.Daemon.DBPath = expandHome(c.Daemon.DBPath)
}

// LoggingOptions converts the logging section for logging.Init.
func (c *Config) LoggingOptions() (logging.Config, error) {
	maxSize, err := logging.ParseMaxSize(c.Logging.Rotation.MaxSize)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:        c.Logging.Level,
		Path:         c.Logging.Path,
		ConsoleLevel: c.Logging.Console,
		Components:   c.Logging.Components,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxAge:     c.Logging.Rotation.MaxAge,
			MaxBackups: c.Logging.Rotation.MaxBackups,
			Daily:      c.Logging.Rotation.Daily,
		},
	}, nil
}

// ConfigDir returns the configuration directory.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "trophy"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "trophy"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists.
func WriteDefault() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# trophy configuration

# Catalogue language for achievement names and descriptions
language: %s

watch:
  # Time between achievement file polls
  poll_interval: %s
  # Also react to filesystem events where the platform delivers them
  nudges: true

api:
  base_url: %s
  # Access token for the remote profile (TROPHY_API_TOKEN also works)
  token: ""
  # RFC 3339 expiry of the active subscription; empty when not subscribed
  subscription_expires_at: ""

notifications:
  enabled: true
  sound: true

# Optional: mirror unlock notifications to a Discord channel
discord:
  token: ""
  channel_id: ""

logging:
  level: info
  # Empty means $XDG_STATE_HOME/trophy/trophy.log
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30
    max_backups: 5
    daily: true

daemon:
  auto_start: true
  # Empty paths use $XDG_DATA_HOME/trophy/
  socket_path: ""
  pid_path: ""
  db_path: ""
`, DefaultLanguage, DefaultPollInterval, DefaultAPIBaseURL)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return path, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}

// DataDir returns $XDG_DATA_HOME/trophy/ for the database, socket and pid files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "trophy")
}

// DefaultSocketPath returns the default Unix socket path.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), "trophy.sock")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "trophy.pid")
}

// DefaultDBPath returns the default achievement store directory.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "achievements.db")
}

// DefaultLibraryPath returns the default game library database.
func DefaultLibraryPath() string {
	return filepath.Join(DataDir(), "library.sqlite")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}
