// Package main provides trophyd, the achievement reconciliation daemon.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jamesainslie/trophy/pkg/daemon"
	"github.com/jamesainslie/trophy/pkg/daemon/notify"
	"github.com/jamesainslie/trophy/pkg/daemon/remote"
	"github.com/jamesainslie/trophy/pkg/trophy/config"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// version is set with -ldflags at build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trophyd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env beside the working directory may carry API and Discord tokens.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("TROPHY_CONFIG"))
	if err != nil {
		return err
	}

	opts, err := cfg.LoggingOptions()
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	if err := logging.Init(opts); err != nil {
		return err
	}
	defer logging.Close()
	log := logging.Get("daemon")

	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Daemon.SocketPath), 0o755); err != nil {
		return err
	}

	pidPath := cfg.Daemon.PIDPath
	statusPath := daemon.StatusPathForSocket(cfg.Daemon.SocketPath)

	if err := daemon.RecoverFromStaleDaemon(pidPath, cfg.Daemon.SocketPath, cfg.Daemon.DBPath); err != nil {
		if errors.Is(err, daemon.ErrDaemonAlreadyRunning) {
			return errors.New("trophyd is already running")
		}
		return err
	}

	srvCfg, err := serverConfig(cfg)
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return err
	}

	srv, err := daemon.NewServer(srvCfg)
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := daemon.WritePIDFile(pidPath); err != nil {
		_ = srv.Close()
		_ = daemon.WriteStatusError(statusPath, err)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() {
		if err := daemon.RemovePIDFile(pidPath); err != nil {
			log.Warn("failed to remove PID file", "error", err)
		}
		_ = daemon.RemoveStatus(statusPath)
	}()

	if err := daemon.WriteStatusReady(statusPath); err != nil {
		log.Warn("failed to write status file", "error", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("shutting down", "signal", sig.String())
		if err := srv.Close(); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
	}()

	log.Info("trophyd starting", "version", version, "socket", cfg.Daemon.SocketPath)

	if err := srv.Serve(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// serverConfig maps the user configuration onto the daemon's.
func serverConfig(cfg *config.Config) (daemon.Config, error) {
	out := daemon.Config{
		SocketPath:    cfg.Daemon.SocketPath,
		DBPath:        cfg.Daemon.DBPath,
		LibraryPath:   cfg.LibraryPath,
		Language:      cfg.Language,
		PollInterval:  cfg.Watch.PollInterval,
		Nudges:        cfg.Watch.Nudges,
		NudgeDebounce: cfg.Watch.NudgeDebounce,
		Notifications: cfg.Notifications.Enabled,
		Sound:         cfg.Notifications.Sound,
		Version:       version,
	}

	if cfg.API.BaseURL != "" {
		rc, err := remoteConfig(cfg.API)
		if err != nil {
			return daemon.Config{}, err
		}
		out.Remote = &rc
	}

	if cfg.Discord.Token != "" && cfg.Discord.ChannelID != "" {
		sink, err := notify.DialDiscord(cfg.Discord.Token, cfg.Discord.ChannelID)
		if err != nil {
			return daemon.Config{}, fmt.Errorf("discord: %w", err)
		}
		out.Sinks = append(out.Sinks, sink)
	}

	return out, nil
}

func remoteConfig(api config.APIConfig) (remote.Config, error) {
	rc := remote.Config{
		BaseURL:           api.BaseURL,
		Token:             api.Token,
		Timeout:           api.Timeout,
		RequestsPerSecond: api.RequestsPerSecond,
		Burst:             api.Burst,
	}
	if api.SubscriptionExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, api.SubscriptionExpiresAt)
		if err != nil {
			return remote.Config{}, fmt.Errorf("api.subscription_expires_at: %w", err)
		}
		rc.SubscriptionExpiresAt = t
	}
	return rc, nil
}
