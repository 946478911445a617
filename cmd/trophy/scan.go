package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Catch up on every installed game",
	Long: `Ask the daemon to locate and parse every installed game's achievement
files and merge what it finds. Unlocks found this way are summarized in a
single notification.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <shop:objectId | shop objectId>",
	Short: "Refetch a game's achievement definitions",
	Args:  gameArgs,
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(refreshCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	start := time.Now()
	res, err := c.Scan(ctx)
	if err != nil {
		return err
	}

	printInfo("Scanned %d games in %s", res.Games, time.Since(start).Round(time.Millisecond))
	printInfo("  %d new achievements in %d games", res.NewUnlocks, res.GamesWithNew)
	if res.Failed > 0 {
		printInfo("  %d games failed (see the daemon log)", res.Failed)
	}
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	key, err := parseGameArgs(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.RefreshDefinitions(ctx, key)
	if err != nil {
		return err
	}
	printInfo("Fetched %d definitions for %s", n, key)
	return nil
}
