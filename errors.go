package authcore

import "errors"

// Kind classifies an engine error for transport mapping.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindRateLimited
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the error type returned by Engine operations. Msg is safe to show
// to clients; internal detail is logged, not carried.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// ErrInvalidEmail rejects an address that does not parse.
	ErrInvalidEmail = newError(KindValidation, "invalid email address")
	// ErrInvalidPassword rejects a password outside the configured length bounds.
	ErrInvalidPassword = newError(KindValidation, "password does not meet length requirements")
	// ErrInvalidInput rejects other malformed input, such as an empty token.
	ErrInvalidInput = newError(KindValidation, "invalid input")

	// ErrUserNotFound is returned when no user matches an id or email.
	ErrUserNotFound = newError(KindNotFound, "user not found")
	// ErrOTPNotFound is returned when the user has no active code.
	ErrOTPNotFound = newError(KindNotFound, "no active otp code")
	// ErrSessionNotFound is returned when a refresh token matches no live slot.
	ErrSessionNotFound = newError(KindNotFound, "session not found")

	// ErrInvalidCredentials is returned for a wrong password.
	ErrInvalidCredentials = newError(KindUnauthorized, "invalid credentials")
	// ErrInvalidOTP is returned when no active code matches.
	ErrInvalidOTP = newError(KindUnauthorized, "invalid otp code")
	// ErrInvalidToken is returned for a malformed, forged, foreign or used verification token.
	ErrInvalidToken = newError(KindUnauthorized, "invalid token")
	// ErrExpiredToken is returned for a verification token past either expiry.
	ErrExpiredToken = newError(KindUnauthorized, "token expired")
	// ErrSessionExpired is returned for a refresh slot past its expiry.
	ErrSessionExpired = newError(KindUnauthorized, "session expired")
	// ErrSessionRevoked is returned for a revoked refresh slot.
	ErrSessionRevoked = newError(KindUnauthorized, "session revoked")
	// ErrRefreshReuse is returned when a rotated-away refresh token is presented
	// while reuse detection is on. Every session of the user has been revoked.
	ErrRefreshReuse = newError(KindUnauthorized, "refresh token reuse detected")
	// ErrInvalidAccessToken is returned for a bad or expired access token.
	ErrInvalidAccessToken = newError(KindUnauthorized, "invalid access token")

	// ErrEmailNotVerified is returned by Login when verification is required first.
	ErrEmailNotVerified = newError(KindForbidden, "email not verified")

	// ErrEmailTaken is returned when the email belongs to another user.
	ErrEmailTaken = newError(KindConflict, "email already registered")
	// ErrEmailAlreadyVerified is returned when a confirmation is requested for a verified address.
	ErrEmailAlreadyVerified = newError(KindConflict, "email already verified")

	// ErrRateLimited is returned when a limiter budget is exhausted.
	ErrRateLimited = newError(KindRateLimited, "too many attempts")

	// ErrMailQueueFull is returned when a message could not be queued.
	ErrMailQueueFull = newError(KindUnavailable, "mail queue full")
	// ErrCanceled is returned when the caller's context ended before the
	// operation finished. The context error stays in the chain.
	ErrCanceled = newError(KindUnavailable, "request canceled")

	// ErrInternal hides storage, crypto and transport failures.
	ErrInternal = newError(KindInternal, "internal error")
)
