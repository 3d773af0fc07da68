package model

import "time"

// MetricKey identifies one of the widget's metrics.
type MetricKey string

const (
	ActiveUsersKey         MetricKey = "active_users"
	ActiveSubscriptionsKey MetricKey = "active_subscriptions"
)

// Fallback values shown until a fetch succeeds.
const (
	DefaultActiveUsers         int64 = 12
	DefaultActiveSubscriptions int64 = 100
)

// Card value sources.
const (
	SourceFetched  = "fetched"
	SourceFallback = "fallback"
)

// -----------------------------------------------------------------------------
// Backend Observations
// -----------------------------------------------------------------------------

// ActiveUsers is a snapshot of members currently on the site.
type ActiveUsers struct {
	Value            int64 // Members active now
	ExpiresInSeconds int64 // Backend cache lifetime; informational only
}

// ActiveSubscriptions is a snapshot of active care subscriptions.
type ActiveSubscriptions struct {
	Value       int64     // Active subscriptions
	LastUpdated time.Time // When the backend last recomputed the count
}

// -----------------------------------------------------------------------------
// View State
// -----------------------------------------------------------------------------

// DisplayState is the per-card animation state.
type DisplayState struct {
	Displayed float64 // Value currently on screen
	Target    int64   // Value being counted toward
	Pulsing   bool    // Card is in its change-highlight window
}

// Card is the rendered state of one metric card.
type Card struct {
	Key       MetricKey `json:"key"`
	Label     string    `json:"label"`
	Subtext   string    `json:"subtext"`
	Displayed int64     `json:"displayed"` // Rounded DisplayState.Displayed
	Text      string    `json:"text"`      // Displayed with thousands separators
	Target    int64     `json:"target"`
	Pulsing   bool      `json:"pulsing"`
	Source    string    `json:"source"` // SourceFetched or SourceFallback
}

// Snapshot is the full widget state pushed to browsers.
type Snapshot struct {
	ActiveUsers         Card      `json:"active_users"`
	ActiveSubscriptions Card      `json:"active_subscriptions"`
	Visible             bool      `json:"visible"`
	Hovered             bool      `json:"hovered"`
	At                  time.Time `json:"at"`
}
