// Package config provides configuration management for trophy and trophyd.
package config

import "time"

// Default configuration values.
const (
	// DefaultPollInterval is the time between watch ticks.
	DefaultPollInterval = 5 * time.Second

	// DefaultLanguage is the catalogue language requested from the API.
	DefaultLanguage = "en"

	// DefaultAPIBaseURL is the remote achievements API.
	DefaultAPIBaseURL = "https://api.hydralauncher.gg"

	// DefaultAPITimeout bounds each remote request.
	DefaultAPITimeout = 30 * time.Second

	// DefaultRequestsPerSecond limits calls to the remote API.
	DefaultRequestsPerSecond = 5.0

	// DefaultRequestBurst is the burst allowance for the remote API limiter.
	DefaultRequestBurst = 10

	// DefaultNudgeDebounce coalesces filesystem events into one early tick.
	DefaultNudgeDebounce = 500 * time.Millisecond
)
