package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/aviarycare/internal/model"
)

// Query names, used as metric labels.
const (
	QueryActiveUsers         = "active_users"
	QueryActiveSubscriptions = "active_subscriptions"
)

const activeUsersSQL = `
SELECT count(DISTINCT COALESCE(member_id, session_id))
FROM member_sessions
WHERE last_seen > $1`

const activeSubscriptionsSQL = `
SELECT count(*) FILTER (WHERE status = 'active'), max(updated_at)
FROM care_subscriptions`

// Querier runs a single-row query. *pgxpool.Pool satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Observer is told how long each query took.
type Observer interface {
	QueryObserved(query string, d time.Duration)
}

// Config holds query settings.
type Config struct {
	ActiveWindow time.Duration // Sessions seen within this window are active
	UsersTTL     time.Duration // Reported as expires_in_seconds
	QueryTimeout time.Duration
}

// Store answers metric queries.
type Store struct {
	db  Querier
	cfg Config
	obs Observer
	now func() time.Time
}

// New creates a store. obs may be nil.
func New(db Querier, cfg Config, obs Observer) *Store {
	return &Store{db: db, cfg: cfg, obs: obs, now: time.Now}
}

// ActiveUsers counts distinct members (or anonymous sessions) seen within the
// active window.
func (s *Store) ActiveUsers(ctx context.Context) (model.ActiveUsers, error) {
	cutoff := s.now().Add(-s.cfg.ActiveWindow)

	var count int64
	err := s.queryRow(ctx, QueryActiveUsers, activeUsersSQL, []any{cutoff}, &count)
	if err != nil {
		return model.ActiveUsers{}, err
	}

	return model.ActiveUsers{
		Value:            count,
		ExpiresInSeconds: int64(s.cfg.UsersTTL / time.Second),
	}, nil
}

// ActiveSubscriptions counts active subscriptions. LastUpdated is the newest
// change to any subscription, or now when the table is empty.
func (s *Store) ActiveSubscriptions(ctx context.Context) (model.ActiveSubscriptions, error) {
	var (
		count   int64
		updated *time.Time
	)
	err := s.queryRow(ctx, QueryActiveSubscriptions, activeSubscriptionsSQL, nil, &count, &updated)
	if err != nil {
		return model.ActiveSubscriptions{}, err
	}

	last := s.now()
	if updated != nil {
		last = *updated
	}
	return model.ActiveSubscriptions{Value: count, LastUpdated: last.UTC()}, nil
}

func (s *Store) queryRow(ctx context.Context, name, sql string, args []any, dest ...any) error {
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.db.QueryRow(ctx, sql, args...).Scan(dest...)
	if s.obs != nil {
		s.obs.QueryObserved(name, time.Since(start))
	}

	if errors.Is(err, pgx.ErrNoRows) {
		// Aggregates always return a row; treat a missing one as zero.
		return nil
	}
	if err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	return nil
}
