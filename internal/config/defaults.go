package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPIBaseURL      = "http://localhost:8081"
	DefaultAPITimeout      = 10 * time.Second
	DefaultRetryBackoff    = 500 * time.Millisecond
	DefaultSiteAddr        = ":8080"
	DefaultMetricsdAddr    = ":8081"
	DefaultReadTimeout     = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPingInterval    = 30 * time.Second
	DefaultPongTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultActiveWindow    = 15 * time.Minute
	DefaultUsersTTL        = 60 * time.Second
	DefaultQueryTimeout    = 5 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Widget defaults.
const (
	DefaultUsersInterval         = 60 * time.Second
	DefaultSubscriptionsInterval = 30 * time.Second
	DefaultFetchTimeout          = 10 * time.Second
	DefaultPulseDuration         = time.Second
	DefaultFallbackUsers         = 12
	DefaultFallbackSubscriptions = 100
	DefaultLocale                = "en"
	DefaultAnimationSteps        = 30
	DefaultAnimationDuration     = time.Second
	DefaultSnapThreshold         = 0.1
)

func (c *SiteConfig) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Widget defaults
	w := &c.Widget
	if w.UsersInterval == 0 {
		w.UsersInterval = DefaultUsersInterval
	}
	if w.SubscriptionsInterval == 0 {
		w.SubscriptionsInterval = DefaultSubscriptionsInterval
	}
	if w.FetchTimeout == 0 {
		w.FetchTimeout = DefaultFetchTimeout
	}
	if w.PulseDuration == 0 {
		w.PulseDuration = DefaultPulseDuration
	}
	if w.FallbackUsers == 0 {
		w.FallbackUsers = DefaultFallbackUsers
	}
	if w.FallbackSubscriptions == 0 {
		w.FallbackSubscriptions = DefaultFallbackSubscriptions
	}
	if w.Locale == "" {
		w.Locale = DefaultLocale
	}
	if w.Animation.Steps == 0 {
		w.Animation.Steps = DefaultAnimationSteps
	}
	if w.Animation.Duration == 0 {
		w.Animation.Duration = DefaultAnimationDuration
	}
	if w.Animation.SnapThreshold == 0 {
		w.Animation.SnapThreshold = DefaultSnapThreshold
	}

	// Stream defaults
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.PongTimeout == 0 {
		c.Stream.PongTimeout = DefaultPongTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}

	applyServerDefaults(&c.Server, DefaultSiteAddr)
	applyLogDefaults(&c.Log)
}

func (c *MetricsdConfig) applyDefaults() {
	applyDBDefaults(&c.Database.Postgres)

	// Store defaults
	if c.Store.ActiveWindow == 0 {
		c.Store.ActiveWindow = DefaultActiveWindow
	}
	if c.Store.UsersTTL == 0 {
		c.Store.UsersTTL = DefaultUsersTTL
	}
	if c.Store.QueryTimeout == 0 {
		c.Store.QueryTimeout = DefaultQueryTimeout
	}

	applyServerDefaults(&c.Server, DefaultMetricsdAddr)
	applyLogDefaults(&c.Log)
}

func applyServerDefaults(s *ServerConfig, addr string) {
	if s.Addr == "" {
		s.Addr = addr
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyLogDefaults(l *LogConfig) {
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
}
