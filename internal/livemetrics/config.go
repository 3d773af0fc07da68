package livemetrics

import (
	"time"

	"github.com/rickgao/aviarycare/internal/animate"
	"github.com/rickgao/aviarycare/internal/model"
)

// Default widget settings.
const (
	DefaultUsersInterval         = 60 * time.Second
	DefaultSubscriptionsInterval = 30 * time.Second
	DefaultFetchTimeout          = 10 * time.Second
	DefaultPulseDuration         = 1000 * time.Millisecond
	DefaultLocale                = "en"
)

// CardText holds the static copy for one card.
type CardText struct {
	Label   string
	Subtext string
}

// Config holds widget configuration.
type Config struct {
	UsersInterval         time.Duration // Active users poll interval (default: 60s)
	SubscriptionsInterval time.Duration // Active subscriptions poll interval (default: 30s)
	FetchTimeout          time.Duration // Per-fetch timeout (default: 10s)
	PulseDuration         time.Duration // Subscriptions change highlight (default: 1s)

	FallbackUsers         int64 // Shown until users are fetched (default: 12)
	FallbackSubscriptions int64 // Shown until subscriptions are fetched (default: 100)

	Animation animate.Config
	Locale    string // BCP 47 tag for number formatting (default: "en")

	UsersCard         CardText
	SubscriptionsCard CardText
}

// DefaultConfig returns the production widget settings.
func DefaultConfig() Config {
	return Config{
		UsersInterval:         DefaultUsersInterval,
		SubscriptionsInterval: DefaultSubscriptionsInterval,
		FetchTimeout:          DefaultFetchTimeout,
		PulseDuration:         DefaultPulseDuration,
		FallbackUsers:         model.DefaultActiveUsers,
		FallbackSubscriptions: model.DefaultActiveSubscriptions,
		Animation:             animate.DefaultConfig(),
		Locale:                DefaultLocale,
		UsersCard: CardText{
			Label:   "Bird lovers online",
			Subtext: "browsing care plans right now",
		},
		SubscriptionsCard: CardText{
			Label:   "Active care subscriptions",
			Subtext: "parrots, macaws and cockatoos in good hands",
		},
	}
}

// withDefaults fills zero fields from DefaultConfig. Zero fallbacks are kept
// only if both are zero, which means the caller left them unset.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UsersInterval <= 0 {
		c.UsersInterval = d.UsersInterval
	}
	if c.SubscriptionsInterval <= 0 {
		c.SubscriptionsInterval = d.SubscriptionsInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.PulseDuration <= 0 {
		c.PulseDuration = d.PulseDuration
	}
	if c.FallbackUsers == 0 && c.FallbackSubscriptions == 0 {
		c.FallbackUsers = d.FallbackUsers
		c.FallbackSubscriptions = d.FallbackSubscriptions
	}
	if c.Animation == (animate.Config{}) {
		c.Animation = d.Animation
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.UsersCard == (CardText{}) {
		c.UsersCard = d.UsersCard
	}
	if c.SubscriptionsCard == (CardText{}) {
		c.SubscriptionsCard = d.SubscriptionsCard
	}
	return c
}
