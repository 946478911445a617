package achievement

// Notification is a user-facing unlock announcement.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`

	// Unlocked and Total drive a progress indicator. Total is zero when
	// the notification has no single-game progress (catch-up summaries).
	Unlocked int `json:"unlocked,omitempty"`
	Total    int `json:"total,omitempty"`

	// Silent suppresses the sound cue.
	Silent bool `json:"silent,omitempty"`

	// Game is set for single-game notifications.
	Game *GameKey `json:"game,omitempty"`
}

// Progress returns Unlocked/Total, or 0 without a total.
func (n Notification) Progress() float64 {
	if n.Total <= 0 {
		return 0
	}
	return float64(n.Unlocked) / float64(n.Total)
}
