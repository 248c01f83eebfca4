package session

import "errors"

var (
	// ErrNotFound reports an unknown or revoked refresh token, or a rotation
	// that lost a race against another rotation or a revoke.
	ErrNotFound = errors.New("session: refresh token not found")
	// ErrExpired reports a live slot whose refresh expiry has passed.
	ErrExpired = errors.New("session: refresh token expired")
	// ErrRevoked reports a slot that was explicitly revoked.
	ErrRevoked = errors.New("session: refresh token revoked")
	// ErrReuseDetected reports presentation of a refresh token that a later
	// rotation already replaced. All of the user's slots are revoked.
	ErrReuseDetected = errors.New("session: refresh token reuse detected")
	// ErrTokenGeneration reports a failure of the random source or the signer.
	ErrTokenGeneration = errors.New("session: token generation failed")
)
