// Package notify turns newly unlocked achievements into user-facing
// notifications and delivers them to a set of sinks.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize/english"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// Sink delivers a notification somewhere.
type Sink interface {
	Notify(ctx context.Context, n achievement.Notification) error
}

// SoundPlayer plays the unlock cue.
type SoundPlayer interface {
	Play(ctx context.Context) error
}

// Options configures an Emitter.
type Options struct {
	// Enabled is the user preference toggle for notifications.
	Enabled bool

	// Sound enables the sound cue when the UI is not focused.
	Sound bool

	// Focused reports whether the UI is visible. Nil means never focused.
	Focused func() bool

	// Player overrides the platform sound player.
	Player SoundPlayer

	Sinks []Sink
}

// GameUnlock is a batch of new unlocks for a single game.
type GameUnlock struct {
	Game achievement.Game

	// Achievements are the newly unlocked entries, oldest first.
	Achievements []achievement.Entry

	// Unlocked and Total are the game's progress after the merge.
	Unlocked int
	Total    int
}

// Emitter decides what to announce and guarantees each unlock is announced
// at most once per process.
type Emitter struct {
	mu        sync.Mutex
	announced map[string]struct{}

	enabled bool
	sound   bool
	focused func() bool
	player  SoundPlayer
	sinks   []Sink

	logger *logging.Logger
}

// New creates an Emitter.
func New(opts Options) *Emitter {
	player := opts.Player
	if player == nil {
		player = platformPlayer()
	}
	focused := opts.Focused
	if focused == nil {
		focused = func() bool { return false }
	}

	return &Emitter{
		announced: make(map[string]struct{}),
		enabled:   opts.Enabled,
		sound:     opts.Sound,
		focused:   focused,
		player:    player,
		sinks:     opts.Sinks,
		logger:    logging.Get("notify"),
	}
}

// SetEnabled flips the user preference toggle.
func (e *Emitter) SetEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
}

// Enabled reports the user preference toggle.
func (e *Emitter) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func announceKey(game achievement.GameKey, name string) string {
	return game.String() + ":" + achievement.NormalizeName(name)
}

// GameUnlocked emits one notification for a live change in a single game.
// Entries that were already announced are dropped; it reports whether a
// notification was emitted.
func (e *Emitter) GameUnlocked(ctx context.Context, u GameUnlock) bool {
	if !e.Enabled() {
		return false
	}

	fresh := e.claim(u.Game.Key(), u.Achievements)
	if len(fresh) == 0 {
		return false
	}

	key := u.Game.Key()
	n := achievement.Notification{
		Unlocked: u.Unlocked,
		Total:    u.Total,
		Game:     &key,
	}

	if len(fresh) == 1 {
		a := fresh[0]
		n.Title = displayName(a.Definition)
		n.Body = a.Description
		n.Icon = a.Icon
	} else {
		names := make([]string, len(fresh))
		for i, a := range fresh {
			names[i] = displayName(a.Definition)
		}
		n.Title = fmt.Sprintf("%s unlocked in %s", english.Plural(len(fresh), "achievement", ""), gameTitle(u.Game))
		n.Body = strings.Join(names, ", ")
		n.Icon = u.Game.IconURL
	}

	e.emit(ctx, n)
	return true
}

// CatchUpSummary emits the aggregate notification after the startup pass.
// Nothing is emitted when total is zero.
func (e *Emitter) CatchUpSummary(ctx context.Context, total, games int) bool {
	if total <= 0 || !e.Enabled() {
		return false
	}

	e.emit(ctx, achievement.Notification{
		Title: fmt.Sprintf("%s unlocked", english.Plural(total, "new achievement", "")),
		Body: fmt.Sprintf("%s unlocked across %s",
			english.Plural(total, "achievement", ""), english.Plural(games, "game", "")),
	})
	return true
}

// claim filters out already-announced entries and records the rest.
func (e *Emitter) claim(game achievement.GameKey, entries []achievement.Entry) []achievement.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	fresh := make([]achievement.Entry, 0, len(entries))
	for _, a := range entries {
		k := announceKey(game, a.Name)
		if _, ok := e.announced[k]; ok {
			continue
		}
		e.announced[k] = struct{}{}
		fresh = append(fresh, a)
	}
	return fresh
}

// Forget drops a game's announced entries so a reset game can announce
// its unlocks again.
func (e *Emitter) Forget(game achievement.GameKey) {
	prefix := game.String() + ":"

	e.mu.Lock()
	defer e.mu.Unlock()
	for k := range e.announced {
		if strings.HasPrefix(k, prefix) {
			delete(e.announced, k)
		}
	}
}

func (e *Emitter) emit(ctx context.Context, n achievement.Notification) {
	n.Silent = e.focused() || !e.sound || !soundSupported

	for _, sink := range e.sinks {
		if err := sink.Notify(ctx, n); err != nil {
			e.logger.Warn("notification sink failed", "title", n.Title, "error", err)
		}
	}

	if !n.Silent {
		if err := e.player.Play(ctx); err != nil {
			e.logger.Debug("sound cue failed", "error", err)
		}
	}
}

func displayName(d achievement.Definition) string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Name
}

func gameTitle(g achievement.Game) string {
	if g.Title != "" {
		return g.Title
	}
	return g.Key().String()
}
