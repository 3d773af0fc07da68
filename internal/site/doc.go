// Package site serves the live metrics widget over HTTP.
//
// Routes:
//
//	GET  /health                 - liveness plus card sources
//	GET  /api/widget/metrics     - current snapshot as JSON
//	GET  /ws/metrics             - snapshot stream (WebSocket)
//	POST /api/payments/success   - payment completion; refreshes subscriptions
//	POST /api/widget/visibility  - {"visible": bool}
//	POST /api/widget/hover       - {"hovered": bool}
//	GET  /metrics                - Prometheus exposition
package site
