package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/trophy/pkg/client"
	"github.com/jamesainslie/trophy/pkg/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the trophyd daemon",
	Long: `Manage the trophyd daemon.

The daemon watches achievement files for every installed game, merges new
unlocks into the local record and sends notifications.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the trophyd daemon",
	Long:  `Start the trophyd daemon in the background.`,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the trophyd daemon",
	Long:  `Stop the trophyd daemon gracefully.`,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the trophyd daemon",
	Long:  `Stop and start the trophyd daemon.`,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the trophyd daemon.`,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	printVerbose("starting daemon...")
	if err := client.StartDaemon(daemonPaths(cfg)); err != nil {
		printVerbose("start failed: %v", err)
		return err
	}
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	if !daemon.IsDaemonRunning(cfg.Daemon.PIDPath) {
		printInfo("Daemon is not running")
		return nil
	}
	printVerbose("stopping daemon via %s", cfg.Daemon.SocketPath)
	if err := client.StopDaemon(daemonPaths(cfg)); err != nil {
		return err
	}
	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(_ *cobra.Command, _ []string) error {
	if err := client.RestartDaemon(daemonPaths(cfg)); err != nil {
		return err
	}
	printInfo("Daemon restarted")
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	if !daemon.IsDaemonRunning(cfg.Daemon.PIDPath) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daemonClient, err := client.ConnectWithContext(ctx, cfg.Daemon.SocketPath)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer daemonClient.Close()

	status, err := daemonClient.GetDaemonStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	printInfo("Daemon status: running")
	if status.Version != "" {
		printInfo("  Version: %s", status.Version)
	}
	printInfo("  Uptime: %s", formatDuration(status.Uptime))
	printInfo("  Memory: %s", humanize.Bytes(uint64(status.Memory)))
	printInfo("  Games: %d", status.Games)
	printInfo("  Unlocked: %s achievements across %d records", humanize.Comma(int64(status.Unlocked)), status.Records)

	if status.InitialSynced {
		printInfo("  Initial sync: done")
	} else {
		printInfo("  Initial sync: pending")
	}
	if !status.LastScan.IsZero() {
		printInfo("  Last scan: %s (%d new)", humanize.Time(status.LastScan), status.LastScanNew)
	}

	remote := "not logged in"
	if status.LoggedIn {
		remote = "logged in"
		if status.Subscription {
			remote += ", subscribed"
		}
	}
	printInfo("  Remote: %s", remote)
	printInfo("  Live clients: %d", status.Subscribers)

	if len(status.WatchedDirs) > 0 {
		printInfo("  Watched directories:")
		for _, p := range status.WatchedDirs {
			printInfo("    - %s", p)
		}
	}

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
