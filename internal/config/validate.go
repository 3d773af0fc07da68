package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/text/language"
)

// Validate checks that all required fields are set and values are valid.
func (c *SiteConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	w := c.Widget
	if w.UsersInterval < 0 {
		return errors.New("widget.users_interval must be positive")
	}
	if w.SubscriptionsInterval < 0 {
		return errors.New("widget.subscriptions_interval must be positive")
	}
	if w.FallbackUsers < 0 {
		return errors.New("widget.fallback_users must be >= 0")
	}
	if w.FallbackSubscriptions < 0 {
		return errors.New("widget.fallback_subscriptions must be >= 0")
	}
	if _, err := language.Parse(w.Locale); err != nil {
		return fmt.Errorf("widget.locale %q: %w", w.Locale, err)
	}
	if w.Animation.Steps < 1 {
		return errors.New("widget.animation.steps must be >= 1")
	}
	if w.Animation.SnapThreshold < 0 {
		return errors.New("widget.animation.snap_threshold must be >= 0")
	}

	if c.Stream.PongTimeout <= c.Stream.PingInterval {
		return fmt.Errorf("stream.pong_timeout (%s) must exceed stream.ping_interval (%s)",
			c.Stream.PongTimeout, c.Stream.PingInterval)
	}
	for i, origin := range c.Stream.AllowedOrigins {
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("stream.allowed_origins[%d] must be scheme://host, got %q", i, origin)
		}
	}

	if err := c.Metrics.validate(); err != nil {
		return err
	}
	return c.Log.validate()
}

// Validate checks that all required fields are set and values are valid.
func (c *MetricsdConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Store.ActiveWindow < 0 {
		return errors.New("store.active_window must be positive")
	}
	if c.Store.UsersTTL < 0 {
		return errors.New("store.users_ttl must be positive")
	}

	if err := c.Metrics.validate(); err != nil {
		return err
	}
	return c.Log.validate()
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (m *MetricsConfig) validate() error {
	if m.Port < 0 || m.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 0 and 65535, got %d", m.Port)
	}
	return nil
}

func (l *LogConfig) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if l.Format != "text" && l.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", l.Format)
	}
	return nil
}
