// Package animate implements the animated numeric display used by the
// social-proof cards.
//
// A Counter presents a displayed value that counts toward its target:
//   - 30 steps spread evenly over 1000 ms per animation
//   - gaps under 0.1 snap immediately without animating
//   - each tick clamps to the target once it is reached or crossed
//   - a new target cancels the in-flight animation before starting the next
package animate
