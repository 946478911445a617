package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/trophy/pkg/daemon"
	"github.com/jamesainslie/trophy/pkg/daemon/library"
	"github.com/jamesainslie/trophy/pkg/daemon/store"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/output"
)

var achievementsCmd = &cobra.Command{
	Use:     "achievements <shop:objectId | shop objectId>",
	Aliases: []string{"ach", "show"},
	Short:   "Show a game's achievements",
	Long: `Show a game's achievement catalogue with unlock state, unlocked first.

The view comes from the daemon. With --no-daemon, or when no daemon is
running, it is read straight from the local record and may lack
definitions the daemon has not fetched yet.`,
	Args: gameArgs,
	RunE: runAchievements,
}

var outputFormat string

func init() {
	achievementsCmd.Flags().StringVarP(&outputFormat, "format", "f", "pretty", "output format (pretty, plain, json, yaml)")
	rootCmd.AddCommand(achievementsCmd)
}

func runAchievements(cmd *cobra.Command, args []string) error {
	key, err := parseGameArgs(args)
	if err != nil {
		return err
	}

	formatter, err := output.Get(outputFormat)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", outputFormat, output.Available())
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var res *output.Result
	if viper.GetBool("no_daemon") && !daemon.IsDaemonRunning(cfg.Daemon.PIDPath) {
		res, err = offlineView(ctx, key)
	} else if res, err = daemonView(ctx, key); err != nil && !daemon.IsDaemonRunning(cfg.Daemon.PIDPath) {
		printVerbose("daemon unavailable, reading the local record: %v", err)
		res, err = offlineView(ctx, key)
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, res); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = buf.WriteTo(os.Stdout)
	return err
}

func daemonView(ctx context.Context, key achievement.GameKey) (*output.Result, error) {
	c, err := connectDaemon(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	game, entries, err := c.ListAchievements(ctx, key)
	if err != nil {
		return nil, err
	}
	return &output.Result{Game: game, Entries: entries, DaemonUp: true}, nil
}

// offlineView reads the library and achievement store directly. The store
// is exclusive, so this only works while trophyd is stopped.
func offlineView(ctx context.Context, key achievement.GameKey) (*output.Result, error) {
	printVerbose("reading %s directly", cfg.Daemon.DBPath)

	var game achievement.Game
	err := withLibrary(func(lib *library.Library) error {
		var err error
		game, err = lib.Get(ctx, key)
		return err
	})
	if errors.Is(err, library.ErrGameNotFound) {
		game = achievement.Game{Shop: key.Shop, ObjectID: key.ObjectID}
	} else if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Daemon.DBPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	rec, err := st.Load(key)
	if err != nil {
		return nil, err
	}
	return &output.Result{
		Game:    game,
		Entries: achievement.BuildView(rec.Achievements, rec.UnlockedAchievements),
	}, nil
}
