// Package achievement provides the core data types shared by the locator,
// parser, merge engine and daemon: games, achievement definitions, unlock
// records and the crack formats that produce them.
package achievement

import (
	"errors"
	"fmt"
	"strings"
)

// GameKey identifies a game by its shop and catalogue object id.
type GameKey struct {
	Shop     string `json:"shop"`
	ObjectID string `json:"objectId"`
}

// ErrInvalidGameKey is returned when a game key string cannot be parsed.
var ErrInvalidGameKey = errors.New("invalid game key")

// String returns the "<shop>:<objectId>" form used as the storage key.
func (k GameKey) String() string {
	return k.Shop + ":" + k.ObjectID
}

// ParseGameKey parses a "<shop>:<objectId>" string.
func ParseGameKey(s string) (GameKey, error) {
	shop, objectID, ok := strings.Cut(s, ":")
	if !ok || shop == "" || objectID == "" {
		return GameKey{}, fmt.Errorf("%w: %q", ErrInvalidGameKey, s)
	}
	return GameKey{Shop: shop, ObjectID: objectID}, nil
}

// Game is an installed game as seen by the reconciliation core.
type Game struct {
	Shop     string `json:"shop"`
	ObjectID string `json:"objectId"`
	Title    string `json:"title"`
	IconURL  string `json:"iconUrl,omitempty"`

	// ExecutablePath is the launch executable, used for the
	// executable-adjacent achievement file fallbacks.
	ExecutablePath string `json:"executablePath,omitempty"`

	// WinePrefixPath is the root of a wine/proton prefix, when the game
	// runs under a compatibility layer.
	WinePrefixPath string `json:"winePrefixPath,omitempty"`

	// RemoteID links the game to a remote profile. Empty means unlinked.
	RemoteID string `json:"remoteId,omitempty"`

	IsDeleted bool `json:"isDeleted,omitempty"`
}

// Key returns the game's storage key.
func (g Game) Key() GameKey {
	return GameKey{Shop: g.Shop, ObjectID: g.ObjectID}
}

// Definition describes one achievement from the remote catalogue.
type Definition struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	IconGray    string `json:"icongray,omitempty"`
	Hidden      bool   `json:"hidden"`
}

// Unlocked is a single unlocked achievement. UnlockTime is in unix seconds.
type Unlocked struct {
	Name       string `json:"name"`
	UnlockTime int64  `json:"unlockTime"`
}

// Record is the persisted achievement state for one game.
type Record struct {
	Achievements         []Definition `json:"achievements"`
	UnlockedAchievements []Unlocked   `json:"unlockedAchievements"`
}

// NormalizeName returns the case-insensitive identity of an achievement name.
func NormalizeName(name string) string {
	return strings.ToUpper(name)
}

// IndexUnlocked returns the set of normalized names in unlocked.
func IndexUnlocked(unlocked []Unlocked) map[string]struct{} {
	set := make(map[string]struct{}, len(unlocked))
	for _, u := range unlocked {
		set[NormalizeName(u.Name)] = struct{}{}
	}
	return set
}

// IndexDefinitions maps normalized names to their definitions.
func IndexDefinitions(defs []Definition) map[string]Definition {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[NormalizeName(d.Name)] = d
	}
	return m
}

// Union returns the entries of primary followed by the entries of secondary
// whose normalized name is not already present. Entries of primary win.
func Union(primary, secondary []Unlocked) []Unlocked {
	seen := make(map[string]struct{}, len(primary)+len(secondary))
	out := make([]Unlocked, 0, len(primary)+len(secondary))
	for _, list := range [][]Unlocked{primary, secondary} {
		for _, u := range list {
			key := NormalizeName(u.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
