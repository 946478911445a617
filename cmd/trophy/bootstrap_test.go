package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jamesainslie/trophy/pkg/daemon/library"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/config"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// useConfig points the package-level configuration at temp paths.
func useConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	prev := cfg
	cfg = &config.Config{
		LibraryPath: filepath.Join(dir, "library.sqlite"),
		Daemon: config.DaemonConfig{
			SocketPath: filepath.Join(dir, "trophy.sock"),
			PIDPath:    filepath.Join(dir, "trophy.pid"),
			DBPath:     filepath.Join(dir, "achievements.db"),
		},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}

func TestInitializeLoggingLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := "language: de\nlogging:\n  path: " + filepath.Join(dir, "trophy.log") + "\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	prevFile, prevCfg := cfgFile, cfg
	cfgFile = file
	t.Cleanup(func() {
		cfgFile, cfg = prevFile, prevCfg
		_ = logging.Close()
	})

	if err := initializeLogging(nil, nil); err != nil {
		t.Fatalf("initializeLogging() returned error: %v", err)
	}
	if cfg == nil || cfg.Language != "de" {
		t.Fatalf("config not loaded from %s: %+v", file, cfg)
	}
	if cfg.Daemon.SocketPath == "" {
		t.Error("socket path default was not applied")
	}
	if _, err := os.Stat(config.DataDir()); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", config.DataDir())
	}
}

func TestInitializeLoggingRejectsBadRotation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("logging:\n  rotation:\n    max_size: lots\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	prevFile, prevCfg := cfgFile, cfg
	cfgFile = file
	t.Cleanup(func() { cfgFile, cfg = prevFile, prevCfg })

	if err := initializeLogging(nil, nil); err == nil {
		t.Error("initializeLogging() should reject an unparseable max_size")
	}
}

func TestMaybeStartDaemonAlreadyRunning(t *testing.T) {
	c := useConfig(t)
	c.Daemon.AutoStart = true

	// The test process stands in for a running daemon.
	if err := os.WriteFile(c.Daemon.PIDPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	if err := maybeStartDaemon(c); err != nil {
		t.Errorf("maybeStartDaemon() returned error when daemon is running: %v", err)
	}
}

func TestMaybeStartDaemonDisabled(t *testing.T) {
	c := useConfig(t)
	c.Daemon.AutoStart = false
	c.Daemon.BinaryPath = "/nonexistent/trophyd"

	if err := maybeStartDaemon(c); err != nil {
		t.Errorf("maybeStartDaemon() should do nothing when auto-start is off: %v", err)
	}
}

func TestMaybeStartDaemonMissingBinary(t *testing.T) {
	c := useConfig(t)
	c.Daemon.AutoStart = true
	c.Daemon.BinaryPath = "/nonexistent/trophyd"

	if err := maybeStartDaemon(c); err == nil {
		t.Error("maybeStartDaemon() should fail when the configured binary is missing")
	}
}

func TestGamesCommands(t *testing.T) {
	useConfig(t)
	ctx := context.Background()
	key := achievement.GameKey{Shop: "steam", ObjectID: "1245620"}
	prefix := t.TempDir()

	gamesAddCmd.SetContext(ctx)
	t.Cleanup(func() {
		_ = gamesAddCmd.Flags().Set("title", "")
		_ = gamesAddCmd.Flags().Set("prefix", "")
	})
	if err := gamesAddCmd.Flags().Set("title", "Elden Ring"); err != nil {
		t.Fatal(err)
	}
	if err := gamesAddCmd.Flags().Set("prefix", prefix); err != nil {
		t.Fatal(err)
	}
	if err := runGamesAdd(gamesAddCmd, []string{key.String()}); err != nil {
		t.Fatalf("games add failed: %v", err)
	}

	gamesLinkCmd.SetContext(ctx)
	if err := runGamesLink(gamesLinkCmd, []string{key.String(), "remote-1"}); err != nil {
		t.Fatalf("games link failed: %v", err)
	}

	lib, err := library.Open(cfg.LibraryPath)
	if err != nil {
		t.Fatal(err)
	}
	game, err := lib.Get(ctx, key)
	_ = lib.Close()
	if err != nil {
		t.Fatalf("game not saved: %v", err)
	}
	if game.Title != "Elden Ring" || game.WinePrefixPath != prefix || game.RemoteID != "remote-1" {
		t.Errorf("unexpected game: %+v", game)
	}

	gamesRemoveCmd.SetContext(ctx)
	if err := runGamesRemove(gamesRemoveCmd, []string{key.String()}); err != nil {
		t.Fatalf("games remove failed: %v", err)
	}

	lib, err = library.Open(cfg.LibraryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()
	installed, err := lib.ListInstalled(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(installed) != 0 {
		t.Errorf("removed game still installed: %+v", installed)
	}
}

func TestOfflineView(t *testing.T) {
	useConfig(t)
	key := achievement.GameKey{Shop: "steam", ObjectID: "1245620"}

	res, err := offlineView(context.Background(), key)
	if err != nil {
		t.Fatalf("offlineView() failed: %v", err)
	}
	if res.DaemonUp {
		t.Error("offline view should not claim the daemon")
	}
	if res.Game.Key() != key {
		t.Errorf("Game = %v, want %v", res.Game.Key(), key)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries for an unknown game, got %d", len(res.Entries))
	}
}
