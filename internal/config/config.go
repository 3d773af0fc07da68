package config

import "time"

// SiteConfig is the root configuration for the site process.
type SiteConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Widget   WidgetConfig   `yaml:"widget"`
	Stream   StreamConfig   `yaml:"stream"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// MetricsdConfig is the root configuration for the metrics backend.
type MetricsdConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Database DatabaseConfig `yaml:"database"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this process.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds metrics API client settings.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Token        string        `yaml:"token"` // Optional bearer token
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"` // Retries within one poll; polling itself is the retry loop
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// WidgetConfig holds live metrics widget settings.
type WidgetConfig struct {
	UsersInterval         time.Duration   `yaml:"users_interval"`
	SubscriptionsInterval time.Duration   `yaml:"subscriptions_interval"`
	FetchTimeout          time.Duration   `yaml:"fetch_timeout"`
	PulseDuration         time.Duration   `yaml:"pulse_duration"`
	FallbackUsers         int64           `yaml:"fallback_users"`
	FallbackSubscriptions int64           `yaml:"fallback_subscriptions"`
	Locale                string          `yaml:"locale"`
	Animation             AnimationConfig `yaml:"animation"`
	UsersCard             CardConfig      `yaml:"users_card"`
	SubscriptionsCard     CardConfig      `yaml:"subscriptions_card"`
}

// AnimationConfig holds counter animation settings.
type AnimationConfig struct {
	Steps         int           `yaml:"steps"`
	Duration      time.Duration `yaml:"duration"`
	SnapThreshold float64       `yaml:"snap_threshold"`
}

// CardConfig overrides a card's static copy. Empty keeps the built-in text.
type CardConfig struct {
	Label   string `yaml:"label"`
	Subtext string `yaml:"subtext"`
}

// StreamConfig holds snapshot WebSocket settings.
type StreamConfig struct {
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds the PostgreSQL connection for the metrics backend.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// StoreConfig holds metric query settings.
type StoreConfig struct {
	ActiveWindow time.Duration `yaml:"active_window"` // A session seen within this window counts as active
	UsersTTL     time.Duration `yaml:"users_ttl"`     // Reported as expires_in_seconds
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// MetricsConfig holds Prometheus metrics settings. Port 0 serves /metrics on
// the main listener.
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
