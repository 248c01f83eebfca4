// Package session manages refresh-token slots and the access tokens minted
// from them.
//
// # Slots
//
// A slot is one auth_refresh_tokens row. Only the SHA-256 digest of the raw
// refresh token is stored. Rotation overwrites the digest and expiry of the
// same row, so the previous raw token fails lookup immediately.
//
// # Reuse
//
// Each rotation records the digest it replaced. With Config.ReuseDetection
// enabled, presenting that replaced token revokes every slot of the user.
// Only the most recent replaced digest is kept per slot.
//
// # Architecture boundaries
//
// This package does not look up users, check passwords or decide whether a
// user may hold a session. The Engine does that before calling in.
package session
