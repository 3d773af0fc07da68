// Package livemetrics implements the social-proof widget shown on the
// marketing pages.
//
// The Widget:
//   - Polls active users every 60s and active subscriptions every 30s, each on
//     its own poller so one metric never delays the other
//   - Shows 12 and 100 until the first successful fetch of each metric
//   - Animates each card toward the latest value (see package animate)
//   - Pulses the subscriptions card for 1s whenever its value changes
//   - Registers the refetch-active-subscriptions hook while running
//   - Pauses polling while the page is hidden and animation while hovered
//
// Fetch failures are logged and counted but never shown to visitors.
package livemetrics
