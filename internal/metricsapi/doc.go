// Package metricsapi serves the live metrics endpoints from the store.
//
//	GET /api/metrics/active-users          {"value", "expires_in_seconds"}
//	GET /api/metrics/active-subscriptions  {"value", "last_updated"}
//	GET /health                            database ping
//	GET /metrics                           Prometheus, when mounted
package metricsapi
