// Package poller implements the per-metric polling loop.
//
// A Poller:
//   - Fetches once on start, then on every interval tick
//   - Runs fetches serially, so completions apply in issuance order
//   - Accepts manual refreshes that run without waiting for the next tick
//   - Skips scheduled ticks while paused (page hidden)
//   - Reports results and errors to handlers; it never retries on its own
package poller
