package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/trophy/pkg/daemon/library"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Manage the game library",
	Long: `Manage the library of installed games whose achievements are tracked.

Games are identified by "<shop>:<objectId>", for example steam:1245620.
The daemon picks up library changes on its next scan.`,
}

var gamesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List games in the library",
	RunE:  runGamesList,
}

var gamesAddCmd = &cobra.Command{
	Use:   "add <shop:objectId>",
	Short: "Add or update a game",
	Long: `Add a game to the library, or update it if it is already there.

On Linux and macOS a game is only located when it has a wine prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runGamesAdd,
}

var gamesRemoveCmd = &cobra.Command{
	Use:   "remove <shop:objectId>",
	Short: "Remove a game from the library",
	Long:  `Mark a game as removed. Its achievement record is kept.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGamesRemove,
}

var gamesLinkCmd = &cobra.Command{
	Use:   "link <shop:objectId> <remoteId>",
	Short: "Link a game to a remote profile entry",
	Long:  `Link a game to its remote profile entry so unlocks are synced. An empty remoteId unlinks it.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runGamesLink,
}

var (
	gameTitle    string
	gameIcon     string
	gameExe      string
	gamePrefix   string
	gamesDeleted bool
)

func init() {
	gamesAddCmd.Flags().StringVar(&gameTitle, "title", "", "display title")
	gamesAddCmd.Flags().StringVar(&gameIcon, "icon", "", "icon URL used in notifications")
	gamesAddCmd.Flags().StringVar(&gameExe, "exe", "", "game executable, for achievement files stored beside it")
	gamesAddCmd.Flags().StringVar(&gamePrefix, "prefix", "", "wine or proton prefix the game runs in")
	gamesListCmd.Flags().BoolVar(&gamesDeleted, "all", false, "include removed games")

	gamesCmd.AddCommand(gamesListCmd)
	gamesCmd.AddCommand(gamesAddCmd)
	gamesCmd.AddCommand(gamesRemoveCmd)
	gamesCmd.AddCommand(gamesLinkCmd)
	rootCmd.AddCommand(gamesCmd)
}

// parseGameArg parses a "<shop>:<objectId>" argument.
func parseGameArg(arg string) (achievement.GameKey, error) {
	key, err := achievement.ParseGameKey(strings.TrimSpace(arg))
	if err != nil {
		return achievement.GameKey{}, fmt.Errorf("expected <shop>:<objectId>, e.g. steam:1245620: %w", err)
	}
	return key, nil
}

// parseGameArgs accepts a game as "<shop>:<objectId>" or as two arguments.
func parseGameArgs(args []string) (achievement.GameKey, error) {
	if len(args) == 2 {
		return parseGameArg(args[0] + ":" + args[1])
	}
	if len(args) != 1 {
		return achievement.GameKey{}, fmt.Errorf("expected a game, got %d arguments", len(args))
	}
	return parseGameArg(args[0])
}

// gameArgs validates the arguments of commands taking one game.
var gameArgs = cobra.RangeArgs(1, 2)

// withLibrary opens the library for the duration of fn.
func withLibrary(fn func(*library.Library) error) error {
	lib, err := library.Open(cfg.LibraryPath)
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(lib)
}

func runGamesList(cmd *cobra.Command, _ []string) error {
	return withLibrary(func(lib *library.Library) error {
		games, err := lib.List(cmd.Context(), gamesDeleted)
		if err != nil {
			return err
		}
		if len(games) == 0 {
			printInfo("No games in the library.")
			printInfo("Run 'trophy games add <shop:objectId>' to add one.")
			return nil
		}

		fmt.Printf("%-20s  %-32s  %-8s  %s\n", "GAME", "TITLE", "LINKED", "PREFIX")
		fmt.Println(strings.Repeat("-", 80))
		for _, g := range games {
			title := truncateString(g.Title, 32)
			if g.IsDeleted {
				title = truncateString("(removed) "+g.Title, 32)
			}
			linked := "no"
			if g.RemoteID != "" {
				linked = "yes"
			}
			prefix := g.WinePrefixPath
			if prefix == "" {
				prefix = "-"
			}
			fmt.Printf("%-20s  %-32s  %-8s  %s\n", g.Key(), title, linked, prefix)
		}
		return nil
	})
}

func runGamesAdd(cmd *cobra.Command, args []string) error {
	key, err := parseGameArg(args[0])
	if err != nil {
		return err
	}

	return withLibrary(func(lib *library.Library) error {
		game, err := mergeGameFlags(cmd.Context(), lib, key, cmd)
		if err != nil {
			return err
		}
		if err := lib.Upsert(cmd.Context(), game); err != nil {
			return err
		}
		printInfo("Saved %s (%s)", key, displayTitle(game))
		return nil
	})
}

// mergeGameFlags applies the flags that were set to the existing library
// entry, or to a new one.
func mergeGameFlags(ctx context.Context, lib *library.Library, key achievement.GameKey, cmd *cobra.Command) (achievement.Game, error) {
	game, err := lib.Get(ctx, key)
	if err != nil {
		game = achievement.Game{Shop: key.Shop, ObjectID: key.ObjectID}
	}
	game.IsDeleted = false

	flags := cmd.Flags()
	if flags.Changed("title") {
		game.Title = gameTitle
	}
	if flags.Changed("icon") {
		game.IconURL = gameIcon
	}
	if flags.Changed("exe") {
		if game.ExecutablePath, err = absPath(gameExe); err != nil {
			return game, err
		}
	}
	if flags.Changed("prefix") {
		if game.WinePrefixPath, err = absPath(gamePrefix); err != nil {
			return game, err
		}
	}
	return game, nil
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return abs, nil
}

func runGamesRemove(cmd *cobra.Command, args []string) error {
	key, err := parseGameArg(args[0])
	if err != nil {
		return err
	}
	return withLibrary(func(lib *library.Library) error {
		if err := lib.Remove(cmd.Context(), key); err != nil {
			return err
		}
		printInfo("Removed %s", key)
		return nil
	})
}

func runGamesLink(cmd *cobra.Command, args []string) error {
	key, err := parseGameArg(args[0])
	if err != nil {
		return err
	}
	return withLibrary(func(lib *library.Library) error {
		if err := lib.SetRemoteID(cmd.Context(), key, args[1]); err != nil {
			return err
		}
		if args[1] == "" {
			printInfo("Unlinked %s", key)
		} else {
			printInfo("Linked %s to %s", key, args[1])
		}
		return nil
	})
}

func displayTitle(g achievement.Game) string {
	if g.Title != "" {
		return g.Title
	}
	return g.Key().String()
}

// truncateString shortens s to at most n runes, marking the cut with "...".
func truncateString(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
