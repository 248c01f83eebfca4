package verification

import "errors"

var (
	// ErrMalformedToken reports a token that does not have the vr_<random>_<ts>_<hmac> shape.
	ErrMalformedToken = errors.New("verification: malformed token")
	// ErrInvalidToken reports a bad signature, an unknown token, or one already used.
	ErrInvalidToken = errors.New("verification: invalid token")
	// ErrExpiredToken reports a token past either its embedded or its stored expiry.
	ErrExpiredToken = errors.New("verification: token expired")
)
