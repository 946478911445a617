package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/trophy/pkg/daemon/broadcaster"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []achievement.Notification
	fail error
}

func (s *recordingSink) Notify(_ context.Context, n achievement.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.fail
}

func (s *recordingSink) all() []achievement.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]achievement.Notification(nil), s.got...)
}

type countingPlayer struct{ plays int }

func (p *countingPlayer) Play(context.Context) error {
	p.plays++
	return nil
}

var hollow = achievement.Game{Shop: "steam", ObjectID: "367520", Title: "Hollow Knight", IconURL: "hk.png"}

func entry(name, display string) achievement.Entry {
	return achievement.Entry{
		Definition: achievement.Definition{Name: name, DisplayName: display, Description: display + " desc", Icon: name + ".png"},
		Unlocked:   true,
	}
}

func newEmitter(sinks ...Sink) (*Emitter, *countingPlayer) {
	p := &countingPlayer{}
	return New(Options{Enabled: true, Sound: true, Player: p, Sinks: sinks}), p
}

func TestGameUnlocked_Single(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newEmitter(sink)

	ok := e.GameUnlocked(context.Background(), GameUnlock{
		Game:         hollow,
		Achievements: []achievement.Entry{entry("FALSE_KNIGHT", "Falsehood")},
		Unlocked:     3,
		Total:        63,
	})
	require.True(t, ok)

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "Falsehood", got[0].Title)
	assert.Equal(t, "Falsehood desc", got[0].Body)
	assert.Equal(t, "FALSE_KNIGHT.png", got[0].Icon)
	assert.Equal(t, 3, got[0].Unlocked)
	assert.Equal(t, 63, got[0].Total)
	require.NotNil(t, got[0].Game)
	assert.Equal(t, hollow.Key(), *got[0].Game)
}

func TestGameUnlocked_Multiple(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newEmitter(sink)

	e.GameUnlocked(context.Background(), GameUnlock{
		Game:         hollow,
		Achievements: []achievement.Entry{entry("A", "Alpha"), entry("B", ""), entry("C", "Gamma")},
	})

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "3 achievements unlocked in Hollow Knight", got[0].Title)
	assert.Equal(t, "Alpha, B, Gamma", got[0].Body)
	assert.Equal(t, "hk.png", got[0].Icon)
}

func TestGameUnlocked_AtMostOnce(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newEmitter(sink)
	ctx := context.Background()

	first := GameUnlock{Game: hollow, Achievements: []achievement.Entry{entry("A", "Alpha")}}
	assert.True(t, e.GameUnlocked(ctx, first))
	assert.False(t, e.GameUnlocked(ctx, first), "same unlock is not announced twice")

	// Case differences are the same achievement.
	again := GameUnlock{Game: hollow, Achievements: []achievement.Entry{entry("a", "Alpha"), entry("B", "Beta")}}
	assert.True(t, e.GameUnlocked(ctx, again))

	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, "Beta", got[1].Title, "only the fresh entry is announced")

	e.Forget(hollow.Key())
	assert.True(t, e.GameUnlocked(ctx, first), "forgotten games announce again")
}

func TestGameUnlocked_Disabled(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newEmitter(sink)
	e.SetEnabled(false)

	assert.False(t, e.GameUnlocked(context.Background(), GameUnlock{
		Game: hollow, Achievements: []achievement.Entry{entry("A", "Alpha")},
	}))
	assert.False(t, e.CatchUpSummary(context.Background(), 5, 2))
	assert.Empty(t, sink.all())

	e.SetEnabled(true)
	assert.True(t, e.GameUnlocked(context.Background(), GameUnlock{
		Game: hollow, Achievements: []achievement.Entry{entry("A", "Alpha")},
	}), "a suppressed unlock was never claimed")
}

func TestCatchUpSummary(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newEmitter(sink)

	assert.False(t, e.CatchUpSummary(context.Background(), 0, 0))
	assert.Empty(t, sink.all())

	assert.True(t, e.CatchUpSummary(context.Background(), 7, 3))
	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "7 new achievements unlocked", got[0].Title)
	assert.Equal(t, "7 achievements unlocked across 3 games", got[0].Body)
	assert.Nil(t, got[0].Game)

	e.CatchUpSummary(context.Background(), 1, 1)
	assert.Equal(t, "1 achievement unlocked across 1 game", sink.all()[1].Body)
}

func TestEmit_SilentWhenFocused(t *testing.T) {
	sink := &recordingSink{}
	p := &countingPlayer{}
	e := New(Options{Enabled: true, Sound: true, Player: p, Sinks: []Sink{sink}, Focused: func() bool { return true }})

	e.CatchUpSummary(context.Background(), 2, 1)
	assert.True(t, sink.all()[0].Silent)
	assert.Zero(t, p.plays)
}

func TestEmit_SoundCue(t *testing.T) {
	sink := &recordingSink{}
	e, p := newEmitter(sink)

	e.CatchUpSummary(context.Background(), 2, 1)

	if soundSupported {
		assert.False(t, sink.all()[0].Silent)
		assert.Equal(t, 1, p.plays)
	} else {
		assert.True(t, sink.all()[0].Silent, "no cue where the asset is unavailable")
		assert.Zero(t, p.plays)
	}
}

func TestEmit_SoundPreferenceOff(t *testing.T) {
	sink := &recordingSink{}
	p := &countingPlayer{}
	e := New(Options{Enabled: true, Sound: false, Player: p, Sinks: []Sink{sink}})

	e.CatchUpSummary(context.Background(), 2, 1)
	assert.True(t, sink.all()[0].Silent)
	assert.Zero(t, p.plays)
}

func TestEmit_SinkFailureDoesNotStopOthers(t *testing.T) {
	broken := &recordingSink{fail: errors.New("boom")}
	ok := &recordingSink{}
	e, _ := newEmitter(broken, ok, NewLogSink())

	assert.True(t, e.CatchUpSummary(context.Background(), 1, 1))
	assert.Len(t, broken.all(), 1)
	assert.Len(t, ok.all(), 1)
}

func TestBroadcastSink(t *testing.T) {
	b := broadcaster.New()
	defer b.Close()
	sub := b.Subscribe(hollow.Key())

	e, _ := newEmitter(NewBroadcastSink(b))
	e.GameUnlocked(context.Background(), GameUnlock{Game: hollow, Achievements: []achievement.Entry{entry("A", "Alpha")}})

	select {
	case ev := <-sub.Events:
		assert.Equal(t, broadcaster.EventNotification, ev.Type)
		assert.Equal(t, hollow.Key(), ev.Game)
		assert.Equal(t, "Alpha", ev.Notification.Title)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("notification not broadcast")
	}
}

func TestDiscordSink_NotConfigured(t *testing.T) {
	_, err := DialDiscord("", "123")
	assert.ErrorIs(t, err, ErrDiscordNotConfigured)

	err = NewDiscordSink(nil, "123").Notify(context.Background(), achievement.Notification{})
	assert.ErrorIs(t, err, ErrDiscordNotConfigured)

	s, err := DialDiscord("token", "123")
	require.NoError(t, err)
	assert.NotNil(t, s.session)
}

func TestDiscordEmbed(t *testing.T) {
	embed := discordEmbed(achievement.Notification{
		Title: "Falsehood", Body: "Defeat the False Knight", Icon: "fk.png", Unlocked: 1, Total: 4,
	})
	assert.Equal(t, "🏆 Falsehood", embed.Title)
	assert.Equal(t, "Defeat the False Knight", embed.Description)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "fk.png", embed.Thumbnail.URL)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "1/4 unlocked (25%)", embed.Footer.Text)

	summary := discordEmbed(achievement.Notification{Title: "2 new achievements unlocked"})
	assert.Nil(t, summary.Thumbnail)
	assert.Nil(t, summary.Footer)
}
