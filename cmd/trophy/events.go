package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	trophyv1 "github.com/jamesainslie/trophy/pkg/api/trophy/v1"
	"github.com/jamesainslie/trophy/pkg/client"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

var eventsCmd = &cobra.Command{
	Use:   "events [shop:objectId]",
	Short: "Follow unlocks and refreshes live",
	Long: `Stream daemon events until interrupted: notifications as achievements
unlock, and refreshed views when a game's record changes. Without a game,
events for every game are shown.

While a client is connected the daemon treats the user as present and
skips notification sounds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvents,
}

var eventsJSON bool

func init() {
	eventsCmd.Flags().BoolVarP(&eventsJSON, "json", "j", false, "print events as JSON lines")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	var key achievement.GameKey
	if len(args) == 1 {
		var err error
		if key, err = parseGameArg(args[0]); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := connectDaemon(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	events, err := c.WatchEvents(ctx, key)
	if err != nil {
		return err
	}
	printVerbose("watching events for %s", describeKey(key))

	enc := json.NewEncoder(os.Stdout)
	for ev := range events {
		if eventsJSON {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Println(formatEvent(ev, time.Now()))
	}

	if ctx.Err() == nil {
		return fmt.Errorf("event stream closed by daemon")
	}
	return nil
}

func describeKey(key achievement.GameKey) string {
	if key == (achievement.GameKey{}) {
		return "all games"
	}
	return key.String()
}

// formatEvent renders one event as a single log-style line.
func formatEvent(ev client.Event, now time.Time) string {
	stamp := now.Format("15:04:05")
	switch ev.Type {
	case trophyv1.EventNotification:
		n := ev.Notification
		if n == nil {
			return fmt.Sprintf("%s  notification", stamp)
		}
		line := fmt.Sprintf("%s  🏆 %s", stamp, n.Title)
		if n.Body != "" {
			line += ": " + n.Body
		}
		if n.Total > 0 {
			line += fmt.Sprintf(" (%d/%d)", n.Unlocked, n.Total)
		}
		return line
	case trophyv1.EventRefresh:
		return fmt.Sprintf("%s  %s: %d/%d unlocked", stamp, ev.Game, achievement.CountUnlocked(ev.View), len(ev.View))
	default:
		return fmt.Sprintf("%s  %s %s", stamp, ev.Type, ev.Game)
	}
}
