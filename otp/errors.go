package otp

import "errors"

var (
	// ErrNotFound reports that the user has no unused, unexpired code.
	ErrNotFound = errors.New("otp: no active code")
	// ErrInvalidCode reports a submitted code matching no active row.
	ErrInvalidCode = errors.New("otp: invalid code")
	// ErrGeneration reports a failure producing a secret or deriving a code.
	ErrGeneration = errors.New("otp: generation failed")
)
