// Package rate tracks failed authentication attempts and answers lockout
// queries for the engine.
//
// # Window semantics
//
// Each key holds a count and the time of the most recent failure. A key is
// locked while count >= max and now-last < lockout. Once the lockout window
// has elapsed the next check drops the counter, so a stale key starts over
// from zero. Key prefixes:
//   - al:  sign-in per account
//   - ali: sign-in per origin (client IP)
//
// # What this package must NOT do
//
//   - Decide which keys an operation consults (the engine does).
//   - Be imported outside the authflow module.
package rate
