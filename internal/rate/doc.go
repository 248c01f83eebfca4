// Package rate provides Redis-backed fixed-window limiters for failed logins,
// failed OTP submissions and confirmation-mail sends.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - al: login failures per email
//   - ao: OTP failures per user
//   - av: confirmation sends per user
//
// A budget of N allows N failures; the check that follows the Nth failure
// is rejected until the window expires or the counter is reset.
package rate
