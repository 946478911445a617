package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Watch.PollInterval != DefaultPollInterval {
		t.Errorf("Watch.PollInterval = %v, want %v", cfg.Watch.PollInterval, DefaultPollInterval)
	}
	if cfg.Language != DefaultLanguage {
		t.Errorf("Language = %q, want %q", cfg.Language, DefaultLanguage)
	}
	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, DefaultAPIBaseURL)
	}
	if !cfg.Notifications.Enabled {
		t.Error("Notifications.Enabled = false, want true")
	}
	if cfg.Daemon.SocketPath != DefaultSocketPath() {
		t.Errorf("Daemon.SocketPath = %q, want %q", cfg.Daemon.SocketPath, DefaultSocketPath())
	}
	if cfg.LibraryPath != DefaultLibraryPath() {
		t.Errorf("LibraryPath = %q, want %q", cfg.LibraryPath, DefaultLibraryPath())
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "trophy")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
language: pt-BR
watch:
  poll_interval: 2s
  nudges: false
api:
  token: abc
  subscription_expires_at: "2030-01-01T00:00:00Z"
notifications:
  enabled: false
discord:
  channel_id: "42"
daemon:
  db_path: ~/trophy-db
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Language != "pt-BR" {
		t.Errorf("Language = %q, want pt-BR", cfg.Language)
	}
	if cfg.Watch.PollInterval != 2*time.Second {
		t.Errorf("Watch.PollInterval = %v, want 2s", cfg.Watch.PollInterval)
	}
	if cfg.Watch.Nudges {
		t.Error("Watch.Nudges = true, want false")
	}
	if cfg.API.Token != "abc" {
		t.Errorf("API.Token = %q, want abc", cfg.API.Token)
	}
	if cfg.Notifications.Enabled {
		t.Error("Notifications.Enabled = true, want false")
	}
	if cfg.Discord.ChannelID != "42" {
		t.Errorf("Discord.ChannelID = %q, want 42", cfg.Discord.ChannelID)
	}
	if want := filepath.Join(tempDir, "trophy-db"); cfg.Daemon.DBPath != want {
		t.Errorf("Daemon.DBPath = %q, want %q", cfg.Daemon.DBPath, want)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("TROPHY_LANGUAGE", "es")
	t.Setenv("TROPHY_API_TOKEN", "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Language != "es" {
		t.Errorf("Language = %q, want es", cfg.Language)
	}
	if cfg.API.Token != "from-env" {
		t.Errorf("API.Token = %q, want from-env", cfg.API.Token)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() with a missing explicit file should fail")
	}
}

func TestLoggingOptions(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{
		Level:    "debug",
		Rotation: RotationConfig{MaxSize: "1MB", MaxBackups: 3},
	}}

	opts, err := cfg.LoggingOptions()
	if err != nil {
		t.Fatalf("LoggingOptions() error = %v", err)
	}
	if opts.Rotation.MaxSize != 1_000_000 {
		t.Errorf("Rotation.MaxSize = %d, want 1000000", opts.Rotation.MaxSize)
	}
	if opts.Rotation.MaxBackups != 3 {
		t.Errorf("Rotation.MaxBackups = %d, want 3", opts.Rotation.MaxBackups)
	}

	cfg.Logging.Rotation.MaxSize = "huge"
	if _, err := cfg.LoggingOptions(); err == nil {
		t.Error("LoggingOptions() with invalid max_size should fail")
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != filepath.Join(tempDir, "trophy", "config.yaml") {
		t.Errorf("path = %q", path)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(default file) error = %v", err)
	}
	if cfg.Watch.PollInterval != DefaultPollInterval {
		t.Errorf("Watch.PollInterval = %v, want %v", cfg.Watch.PollInterval, DefaultPollInterval)
	}
}
