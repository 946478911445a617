package trophyv1

import "github.com/jamesainslie/trophy/pkg/trophy/achievement"

// GameRequest addresses a single game.
type GameRequest struct {
	Shop     string `json:"shop"`
	ObjectID string `json:"objectId"`
}

// Key returns the game key.
func (r *GameRequest) Key() achievement.GameKey {
	return achievement.GameKey{Shop: r.Shop, ObjectID: r.ObjectID}
}

// GetStatusRequest asks for daemon health.
type GetStatusRequest struct{}

// Status reports daemon health and reconciliation progress.
type Status struct {
	Running       bool   `json:"running"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	MemoryBytes   int64  `json:"memoryBytes"`

	Games         int  `json:"games"`
	Records       int  `json:"records"`
	Unlocked      int  `json:"unlocked"`
	InitialSynced bool `json:"initialSynced"`

	LastScanUnix int64 `json:"lastScanUnix,omitempty"`
	LastScanNew  int   `json:"lastScanNew"`

	WatchedDirs []string `json:"watchedDirs,omitempty"`
	Subscribers int      `json:"subscribers"`

	LoggedIn     bool `json:"loggedIn"`
	Subscription bool `json:"subscription"`
}

// PreSearchRequest triggers a catch-up pass.
type PreSearchRequest struct{}

// PreSearchResponse summarizes a catch-up pass.
type PreSearchResponse struct {
	Games        int `json:"games"`
	NewUnlocks   int `json:"newUnlocks"`
	GamesWithNew int `json:"gamesWithNew"`
	Failed       int `json:"failed"`
}

// ListAchievementsRequest asks for one game's achievement view.
type ListAchievementsRequest = GameRequest

// ListAchievementsResponse is a game's achievement view.
type ListAchievementsResponse struct {
	Game    achievement.Game    `json:"game"`
	Entries []achievement.Entry `json:"entries"`
}

// ResetAchievementsRequest clears one game's progress.
type ResetAchievementsRequest = GameRequest

// ResetAchievementsResponse reports what a reset removed.
type ResetAchievementsResponse struct {
	FilesRemoved  []string `json:"filesRemoved,omitempty"`
	RemoteCleared bool     `json:"remoteCleared"`
}

// RefreshDefinitionsRequest refetches one game's catalogue.
type RefreshDefinitionsRequest = GameRequest

// RefreshDefinitionsResponse reports the refreshed catalogue size.
type RefreshDefinitionsResponse struct {
	Count int `json:"count"`
}

// WatchEventsRequest subscribes to events. An empty game receives events
// for every game.
type WatchEventsRequest = GameRequest

// Event type names.
const (
	EventRefresh      = "refresh"
	EventNotification = "notification"
)

// Event is a streamed daemon event.
type Event struct {
	Type         string                    `json:"type"`
	Game         achievement.GameKey       `json:"game"`
	View         []achievement.Entry       `json:"view,omitempty"`
	Notification *achievement.Notification `json:"notification,omitempty"`
}

// ShutdownRequest asks the daemon to stop.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Success bool `json:"success"`
}
