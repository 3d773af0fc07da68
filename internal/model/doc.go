// Package model defines the shared types of the live metrics widget.
//
// Conventions:
//   - Metric values are non-negative int64 counts
//   - Timestamps are time.Time in UTC
//   - Cards are keyed by MetricKey
package model
