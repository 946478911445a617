package main

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/trophy/pkg/trophy/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage trophy configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/trophy/config.yaml (if set)
  2. ~/.config/trophy/config.yaml

Environment variables can override config file settings using the TROPHY_ prefix:
  TROPHY_LANGUAGE=de
  TROPHY_API_TOKEN=...
  TROPHY_WATCH_POLL_INTERVAL=10s`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configFilePath returns the file passed with --config, or the default path.
func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config file: %s\n\n", path)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	for _, row := range configRows(cfg) {
		fmt.Printf("%-32s %s\n", row[0]+":", row[1])
	}

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	overrides := envOverrides(os.Environ())
	if len(overrides) == 0 {
		fmt.Println("(none)")
	}
	for _, o := range overrides {
		fmt.Println(o)
	}

	return nil
}

// configRows flattens c into key/value pairs in display order. Secrets are
// masked.
func configRows(c *config.Config) [][2]string {
	rows := [][2]string{
		{"language", c.Language},
		{"library_path", c.LibraryPath},
		{"watch.poll_interval", c.Watch.PollInterval.String()},
		{"watch.nudges", fmt.Sprint(c.Watch.Nudges)},
		{"watch.nudge_debounce", c.Watch.NudgeDebounce.String()},
		{"api.base_url", c.API.BaseURL},
		{"api.token", maskSecret(c.API.Token)},
		{"api.subscription_expires_at", c.API.SubscriptionExpiresAt},
		{"api.timeout", c.API.Timeout.String()},
		{"api.requests_per_second", fmt.Sprint(c.API.RequestsPerSecond)},
		{"notifications.enabled", fmt.Sprint(c.Notifications.Enabled)},
		{"notifications.sound", fmt.Sprint(c.Notifications.Sound)},
		{"discord.token", maskSecret(c.Discord.Token)},
		{"discord.channel_id", c.Discord.ChannelID},
		{"logging.level", c.Logging.Level},
		{"logging.path", c.Logging.Path},
		{"daemon.auto_start", fmt.Sprint(c.Daemon.AutoStart)},
		{"daemon.socket_path", c.Daemon.SocketPath},
		{"daemon.pid_path", c.Daemon.PIDPath},
		{"daemon.db_path", c.Daemon.DBPath},
	}
	return rows
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// envOverrides returns the TROPHY_ variables in env, sorted, with values of
// secret-looking keys masked.
func envOverrides(env []string) []string {
	var out []string
	for _, kv := range env {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "TROPHY_") || value == "" {
			continue
		}
		if strings.HasSuffix(name, "_TOKEN") {
			value = maskSecret(value)
		}
		out = append(out, name+"="+value)
	}
	sort.Strings(out)
	return out
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.WriteDefault(); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", path, editor)

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'trophy config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", path)
	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Println(path)

	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
