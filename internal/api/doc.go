// Package api provides the REST client for the backend metrics endpoints.
//
// Endpoints:
//   - GET /api/metrics/active-users
//   - GET /api/metrics/active-subscriptions
//
// Responses that fail to decode or validate are reported as
// ErrMalformedResponse; no partial values are returned.
package api
