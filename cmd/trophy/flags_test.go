package main

import (
	"strings"
	"testing"
	"time"

	trophyv1 "github.com/jamesainslie/trophy/pkg/api/trophy/v1"
	"github.com/jamesainslie/trophy/pkg/client"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/config"
)

func TestParseGameArg(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    achievement.GameKey
		wantErr bool
	}{
		{name: "steam", input: "steam:1245620", want: achievement.GameKey{Shop: "steam", ObjectID: "1245620"}},
		{name: "surrounding space", input: "  gog:1207664663 ", want: achievement.GameKey{Shop: "gog", ObjectID: "1207664663"}},
		{name: "missing separator", input: "1245620", wantErr: true},
		{name: "missing shop", input: ":1245620", wantErr: true},
		{name: "missing object id", input: "steam:", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGameArg(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseGameArg(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseGameArg(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseGameArg(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseGameArgs(t *testing.T) {
	want := achievement.GameKey{Shop: "steam", ObjectID: "1245620"}

	got, err := parseGameArgs([]string{"steam", "1245620"})
	if err != nil {
		t.Fatalf("two arguments failed: %v", err)
	}
	if got != want {
		t.Errorf("two arguments = %v, want %v", got, want)
	}

	got, err = parseGameArgs([]string{"steam:1245620"})
	if err != nil {
		t.Fatalf("one argument failed: %v", err)
	}
	if got != want {
		t.Errorf("one argument = %v, want %v", got, want)
	}

	if _, err := parseGameArgs(nil); err == nil {
		t.Error("no arguments should fail")
	}
	if _, err := parseGameArgs([]string{"steam", ""}); err == nil {
		t.Error("empty object id should fail")
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"Elden Ring", 32, "Elden Ring"},
		{"The Witcher 3: Wild Hunt", 10, "The Wit..."},
		{"Hades", 3, "Had"},
		{"Ōkami HD", 6, "Ōka..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.input, tt.n); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 30*time.Minute, "2h 30m"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestConfigRowsMasksSecrets(t *testing.T) {
	c := &config.Config{
		API:     config.APIConfig{Token: "secret-token"},
		Discord: config.DiscordConfig{Token: "bot-token", ChannelID: "42"},
	}

	for _, row := range configRows(c) {
		if strings.Contains(row[1], "token") {
			t.Errorf("%s leaks a secret: %q", row[0], row[1])
		}
		if row[0] == "discord.channel_id" && row[1] != "42" {
			t.Errorf("discord.channel_id = %q, want 42", row[1])
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	env := []string{
		"HOME=/home/user",
		"TROPHY_LANGUAGE=de",
		"TROPHY_API_TOKEN=abc",
		"TROPHY_EMPTY=",
		"XTROPHY_OTHER=1",
	}

	got := envOverrides(env)
	want := []string{"TROPHY_API_TOKEN=********", "TROPHY_LANGUAGE=de"}
	if len(got) != len(want) {
		t.Fatalf("envOverrides() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("envOverrides()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFormatEvent(t *testing.T) {
	now := time.Date(2024, 3, 1, 21, 4, 5, 0, time.UTC)
	game := achievement.GameKey{Shop: "steam", ObjectID: "1245620"}

	tests := []struct {
		name string
		ev   client.Event
		want string
	}{
		{
			name: "notification",
			ev: client.Event{
				Type:         trophyv1.EventNotification,
				Game:         game,
				Notification: &achievement.Notification{Title: "Elden Lord", Body: "Become the Elden Lord", Unlocked: 40, Total: 42},
			},
			want: "21:04:05  🏆 Elden Lord: Become the Elden Lord (40/42)",
		},
		{
			name: "summary without progress",
			ev: client.Event{
				Type:         trophyv1.EventNotification,
				Notification: &achievement.Notification{Title: "3 new achievements unlocked"},
			},
			want: "21:04:05  🏆 3 new achievements unlocked",
		},
		{
			name: "refresh",
			ev: client.Event{
				Type: trophyv1.EventRefresh,
				Game: game,
				View: []achievement.Entry{{Unlocked: true}, {Unlocked: false}, {Unlocked: true}},
			},
			want: "21:04:05  steam:1245620: 2/3 unlocked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatEvent(tt.ev, now); got != tt.want {
				t.Errorf("formatEvent() = %q, want %q", got, tt.want)
			}
		})
	}
}
