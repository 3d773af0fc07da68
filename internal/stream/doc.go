// Package stream pushes widget snapshots to browsers over WebSocket.
//
// Each connection:
//   - Receives the current snapshot on connect, then every change (conflated)
//   - Is pinged periodically and dropped if pongs stop arriving
//   - May send visibility and hover reports, which the server aggregates
//     across connections before forwarding to the widget
package stream
