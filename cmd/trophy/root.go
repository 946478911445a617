package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/trophy/pkg/client"
	"github.com/jamesainslie/trophy/pkg/trophy/config"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:   "trophy",
		Short: "Track achievements unlocked in locally installed games",
		Long: `Trophy reconciles achievement files written by game emulators with a
local record of unlocks, and announces new ones as they happen.

The trophyd daemon watches your library in the background. This command
talks to it, and manages the library and configuration.

Examples:
  trophy games add steam:1245620 --title "Elden Ring" --prefix ~/.wine
  trophy achievements steam:1245620      # Show a game's achievements
  trophy scan                            # Catch up on every game now
  trophy events                          # Follow unlocks live
  trophy daemon status                   # Show daemon status`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/trophy/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-daemon", false, "don't start trophyd automatically")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_daemon", rootCmd.PersistentFlags().Lookup("no-daemon"))
}

// initializeLogging loads configuration and starts file logging. It runs
// before every command.
func initializeLogging(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := config.EnsureDataDir(); err != nil {
		return err
	}

	opts, err := cfg.LoggingOptions()
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	if getVerbose() {
		opts.ConsoleLevel = "debug"
	}
	return logging.Init(opts)
}

// Execute runs the root command.
func Execute() error {
	defer logging.Close()
	return rootCmd.Execute()
}

// daemonPaths returns the daemon paths from the loaded configuration.
func daemonPaths(c *config.Config) client.DaemonPaths {
	return client.DaemonPaths{
		Binary: c.Daemon.BinaryPath,
		Socket: c.Daemon.SocketPath,
		PID:    c.Daemon.PIDPath,
	}
}

// maybeStartDaemon starts trophyd when auto-start is enabled.
func maybeStartDaemon(c *config.Config) error {
	if !c.Daemon.AutoStart || viper.GetBool("no_daemon") {
		return nil
	}
	return client.EnsureDaemon(daemonPaths(c))
}

// connectDaemon returns a client for the running daemon, starting it first
// when configured to.
func connectDaemon(ctx context.Context) (*client.Client, error) {
	if err := maybeStartDaemon(cfg); err != nil {
		logging.Get("cli").Warn("daemon auto-start failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := client.ConnectWithContext(ctx, cfg.Daemon.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("daemon unavailable (start with: trophy daemon start): %w", err)
	}
	return c, nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}
