// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Widget fetch outcomes and last fetched values per metric
//   - Refresh hook triggers and subscription-card pulses
//   - Connected snapshot stream clients
//   - HTTP requests per route (see Middleware) and backend query latency
package metrics
