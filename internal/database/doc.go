// Package database manages the PostgreSQL pool behind the metrics backend.
//
// Tables:
//   - member_sessions: one row per browser session, touched on activity
//   - care_subscriptions: one row per bird-care plan subscription
package database
