package parser

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

// family turns a decoded document into unlocks. Each crack family names its
// "is unlocked" flag and its timestamp field differently.
type family interface {
	extract(doc *document) []achievement.Unlocked
}

// flagged covers families that store one section per achievement with a
// boolean flag and a timestamp field.
func flagged(doc *document, flag, stamp string) []achievement.Unlocked {
	var out []achievement.Unlocked
	for _, name := range doc.order {
		fields := doc.sections[name]
		if !truthy(fields[flag]) {
			continue
		}
		out = append(out, achievement.Unlocked{Name: name, UnlockTime: toUnix(fields[stamp])})
	}
	return out
}

// achievedTimestamp is the OnlineFix layout.
type achievedTimestamp struct{}

func (achievedTimestamp) extract(doc *document) []achievement.Unlocked {
	return flagged(doc, "achieved", "timestamp")
}

// earnedTime is the Goldberg, GSE and Empress JSON layout.
type earnedTime struct{}

func (earnedTime) extract(doc *document) []achievement.Unlocked {
	return flagged(doc, "earned", "earned_time")
}

// achievedUnlockTime is the Codex, Rune, RLD, 3DM and RLE layout.
type achievedUnlockTime struct{}

func (achievedUnlockTime) extract(doc *document) []achievement.Unlocked {
	return flagged(doc, "Achieved", "UnlockTime")
}

// creamAPI is the CreamAPI layout.
type creamAPI struct{}

func (creamAPI) extract(doc *document) []achievement.Unlocked {
	return flagged(doc, "achieved", "unlocktime")
}

// userStats keeps every achievement in an [ACHIEVEMENTS] section as
// inline tables: NAME = {unlocked = true, time = 1700000000}.
type userStats struct{}

func (userStats) extract(doc *document) []achievement.Unlocked {
	fields, ok := doc.sections["ACHIEVEMENTS"]
	if !ok {
		return nil
	}

	var out []achievement.Unlocked
	for _, name := range sortedKeys(fields) {
		s, ok := fields[name].(string)
		if !ok {
			continue
		}
		table, ok := parseInlineTable(s)
		if !ok || !truthy(table["unlocked"]) {
			continue
		}
		out = append(out, achievement.Unlocked{Name: name, UnlockTime: toUnix(table["time"])})
	}
	return out
}

// skidrow keeps flags and times in two parallel sections keyed by
// achievement name: [Achievements] NAME=1 and [AchievementsUnlockTimes].
type skidrow struct{}

func (skidrow) extract(doc *document) []achievement.Unlocked {
	flags := doc.sections["Achievements"]
	times := doc.sections["AchievementsUnlockTimes"]

	var out []achievement.Unlocked
	for _, name := range sortedKeys(flags) {
		if !truthy(flags[name]) {
			continue
		}
		out = append(out, achievement.Unlocked{Name: name, UnlockTime: toUnix(times[name])})
	}
	return out
}

// directoryEntries is the FLT layout: every entry is an unlock.
type directoryEntries struct{}

func (directoryEntries) extract(doc *document) []achievement.Unlocked {
	out := make([]achievement.Unlocked, 0, len(doc.order))
	for _, name := range doc.order {
		out = append(out, achievement.Unlocked{Name: name, UnlockTime: toUnix(doc.sections[name]["time"])})
	}
	return out
}

func sortedKeys(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}

func toUnix(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil {
			return n
		}
	}
	return 0
}
