package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <shop:objectId | shop objectId>",
	Short: "Reset a game's achievements",
	Long: `Delete a game's achievement files, clear its local record and, when the
game is linked, its remote profile entry. This cannot be undone.`,
	Args: gameArgs,
	RunE: runReset,
}

var resetYes bool

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "don't ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	key, err := parseGameArgs(args)
	if err != nil {
		return err
	}

	if !resetYes && !confirm(fmt.Sprintf("Reset all achievements for %s?", key)) {
		printInfo("Aborted")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Reset(ctx, key)
	if err != nil {
		return err
	}

	printInfo("Reset %s", key)
	for _, f := range res.FilesRemoved {
		printInfo("  removed %s", f)
	}
	if res.RemoteCleared {
		printInfo("  cleared remote profile entry")
	}
	return nil
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
