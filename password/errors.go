package password

import "errors"

var (
	// ErrHashing reports an RNG or primitive failure while producing a hash.
	ErrHashing = errors.New("password hashing failed")
	// ErrMalformedHash reports a stored hash that cannot be parsed by its algorithm.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrUnsupportedAlgorithm reports a credential whose algorithm tag has no registered hasher.
	ErrUnsupportedAlgorithm = errors.New("unsupported password algorithm")
	// ErrPasswordTooShort reports a password below the configured minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong reports a password the selected algorithm cannot accept.
	ErrPasswordTooLong = errors.New("password too long")
)
