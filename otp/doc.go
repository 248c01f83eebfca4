// Package otp implements the one-time-code second factor.
//
// Codes are derived with TOTP (RFC 6238, SHA-1, 30 s step) from a per-user
// seed at issue time and then stored as plain single-use rows with their own
// expiry. Validation compares against the stored rows, not against a live
// TOTP window, so a delivered code is a snapshot. Several codes may be active
// for one user at the same time.
package otp
