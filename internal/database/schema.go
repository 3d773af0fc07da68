package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS member_sessions (
		session_id UUID PRIMARY KEY,
		member_id  UUID,
		last_seen  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS member_sessions_last_seen_idx
		ON member_sessions (last_seen)`,
	`CREATE TABLE IF NOT EXISTS care_subscriptions (
		subscription_id UUID PRIMARY KEY,
		member_id       UUID NOT NULL,
		plan            TEXT NOT NULL,
		status          TEXT NOT NULL CHECK (status IN ('active', 'past_due', 'canceled')),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS care_subscriptions_status_idx
		ON care_subscriptions (status)`,
}

// EnsureSchema creates the tables the metrics queries read.
func EnsureSchema(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
