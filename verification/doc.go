// Package verification issues and confirms signed, time-bounded tokens that
// prove ownership of an email address.
//
// A token embeds its own issue timestamp and an HMAC over the user id and
// that timestamp, so signature and freshness can be checked without storage.
// The persisted row carries a second, independent expiry and the used_at
// marker; both checks must pass.
package verification
